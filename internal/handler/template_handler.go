package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"BedrockMinutes/internal/dto"
	"BedrockMinutes/internal/repository"
	"BedrockMinutes/internal/service"
)

type TemplateHandler struct {
	svc *service.TemplateService
}

func NewTemplateHandler(svc *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

// List 列出全部模板
// GET /api/v1/templates
func (h *TemplateHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": resp})
}

// Get 查询单个模板
// GET /api/v1/templates/:id
func (h *TemplateHandler) Get(c *gin.Context) {
	tmpl, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "模板不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": tmpl})
}

// Create 创建自定义模板
// POST /api/v1/templates
func (h *TemplateHandler) Create(c *gin.Context) {
	var req dto.CreateTemplateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tmpl, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		// Save 前的结构校验失败走 400
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": tmpl})
}
