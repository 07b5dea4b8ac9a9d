package dto

import "BedrockMinutes/internal/model"

// CreateTemplateReq 创建自定义模板请求
type CreateTemplateReq struct {
	ID        string                  `json:"id" binding:"required"`
	Name      string                  `json:"name" binding:"required"`
	Structure model.TemplateStructure `json:"structure" binding:"required"`
}

// TemplateSummary 模板列表项
type TemplateSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SectionCount int    `json:"section_count"`
}

// TemplateListResp 模板列表响应
type TemplateListResp struct {
	Total int               `json:"total"`
	List  []TemplateSummary `json:"list"`
}
