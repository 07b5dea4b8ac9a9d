package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"BedrockMinutes/internal/model"
	"BedrockMinutes/internal/storage"
)

// ErrTemplateNotFound 模板不存在
var ErrTemplateNotFound = errors.New("模板不存在")

// TemplatesPrefix 模板对象的 key 前缀
const TemplatesPrefix = "templates/"

// TemplateRepository 模板仓库，只读地服务于 prompt 构建与提取校验
type TemplateRepository struct {
	store storage.ObjectStore
}

func NewTemplateRepository(store storage.ObjectStore) *TemplateRepository {
	return &TemplateRepository{store: store}
}

func templateKey(id string) string {
	return TemplatesPrefix + id + ".json"
}

// Get 按 ID 加载模板。请求默认模板而存储中尚不存在时，返回内置默认模板。
func (r *TemplateRepository) Get(ctx context.Context, id string) (*model.Template, error) {
	data, err := r.store.Get(ctx, templateKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			if id == model.DefaultTemplateID {
				return model.DefaultTemplate(), nil
			}
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	var t model.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("解析模板失败: %w", err)
	}
	return &t, nil
}

// Save 保存模板
func (r *TemplateRepository) Save(ctx context.Context, t *model.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return r.store.Put(ctx, templateKey(t.ID), data, "application/json")
}

// List 列出全部模板，默认模板排在最前
func (r *TemplateRepository) List(ctx context.Context) ([]*model.Template, error) {
	keys, err := r.store.List(ctx, TemplatesPrefix)
	if err != nil {
		return nil, err
	}

	var templates []*model.Template
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		data, err := r.store.Get(ctx, key)
		if err != nil {
			continue
		}
		var t model.Template
		if err := json.Unmarshal(data, &t); err != nil {
			log.Printf("⚠️ 无法解析模板 %s: %v", key, err)
			continue
		}
		templates = append(templates, &t)
	}

	sort.Slice(templates, func(i, j int) bool {
		if templates[i].IsDefault != templates[j].IsDefault {
			return templates[i].IsDefault
		}
		return templates[i].Name < templates[j].Name
	})
	return templates, nil
}

// EnsureDefault 确保默认模板已写入存储，可重复调用
func (r *TemplateRepository) EnsureDefault(ctx context.Context) error {
	_, err := r.store.Get(ctx, templateKey(model.DefaultTemplateID))
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrObjectNotFound) {
		return err
	}

	if err := r.Save(ctx, model.DefaultTemplate()); err != nil {
		return fmt.Errorf("写入默认模板失败: %w", err)
	}
	log.Println("🎉 默认模板已创建")
	return nil
}
