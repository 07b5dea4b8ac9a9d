package model

import (
	"errors"
	"time"
)

// TemplateField 模板字段，对应会议记录中的一条信息
type TemplateField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// TemplateSection 模板章节，包含若干字段
type TemplateSection struct {
	Name   string          `json:"name"`
	Fields []TemplateField `json:"fields"`
}

// TemplateStructure 完整的模板结构
type TemplateStructure struct {
	Sections []TemplateSection `json:"sections"`
}

// Template 会议记录模板，决定提取输出的章节结构。
// 持久化在对象存储: templates/{id}.json。
type Template struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	IsDefault bool              `json:"is_default"`
	CreatedAt time.Time         `json:"created_at"`
	Structure TemplateStructure `json:"structure"`
}

// Validate 校验模板结构完整性
func (t *Template) Validate() error {
	if t.ID == "" {
		return errors.New("模板缺少 id")
	}
	if t.Name == "" || len(t.Name) > 100 {
		return errors.New("模板名称必须为 1-100 字符")
	}
	if len(t.Structure.Sections) == 0 {
		return errors.New("模板必须至少包含一个 section")
	}
	for _, sec := range t.Structure.Sections {
		if sec.Name == "" {
			return errors.New("模板 section 缺少名称")
		}
		if len(sec.Fields) == 0 {
			return errors.New("模板 section 必须至少包含一个字段")
		}
		for _, f := range sec.Fields {
			if f.Key == "" || f.Label == "" {
				return errors.New("模板字段必须同时提供 key 和 label")
			}
		}
	}
	return nil
}

// RequiredLabels 收集所有必填字段的标签，用于提取结果校验
func (t *Template) RequiredLabels() []string {
	var labels []string
	for _, sec := range t.Structure.Sections {
		for _, f := range sec.Fields {
			if f.Required {
				labels = append(labels, f.Label)
			}
		}
	}
	return labels
}

// DefaultTemplateID 默认模板的固定标识
const DefaultTemplateID = "default"

// DefaultTemplate 内置默认模板，首次启动时写入对象存储
func DefaultTemplate() *Template {
	return &Template{
		ID:        DefaultTemplateID,
		Name:      "标准会议记录",
		IsDefault: true,
		CreatedAt: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
		Structure: TemplateStructure{
			Sections: []TemplateSection{
				{
					Name: "会议基本信息",
					Fields: []TemplateField{
						{Key: "title", Label: "会议主题", Required: true},
						{Key: "date", Label: "会议日期", Required: true},
						{Key: "participants", Label: "参与者", Required: false},
					},
				},
				{
					Name: "会议内容",
					Fields: []TemplateField{
						{Key: "topics", Label: "讨论议题", Required: true},
						{Key: "decisions", Label: "决策事项", Required: false},
						{Key: "action_items", Label: "行动项", Required: false},
					},
				},
			},
		},
	}
}
