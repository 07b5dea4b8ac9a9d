package service

import (
	"context"

	"BedrockMinutes/internal/dto"
	"BedrockMinutes/internal/model"
	"BedrockMinutes/internal/repository"
)

type TemplateService struct {
	repo *repository.TemplateRepository
}

func NewTemplateService(repo *repository.TemplateRepository) *TemplateService {
	return &TemplateService{repo: repo}
}

// Get 查询单个模板，default 永远可用
func (s *TemplateService) Get(ctx context.Context, id string) (*model.Template, error) {
	return s.repo.Get(ctx, id)
}

// List 列出全部模板，default 在最前
func (s *TemplateService) List(ctx context.Context) (*dto.TemplateListResp, error) {
	templates, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	list := make([]dto.TemplateSummary, 0, len(templates))
	for _, t := range templates {
		list = append(list, dto.TemplateSummary{
			ID:           t.ID,
			Name:         t.Name,
			SectionCount: len(t.Structure.Sections),
		})
	}
	return &dto.TemplateListResp{Total: len(list), List: list}, nil
}

// Create 创建或覆盖自定义模板
func (s *TemplateService) Create(ctx context.Context, req dto.CreateTemplateReq) (*model.Template, error) {
	tmpl := &model.Template{
		ID:        req.ID,
		Name:      req.Name,
		Structure: req.Structure,
	}
	if err := s.repo.Save(ctx, tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}
