package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"BedrockMinutes/internal/dto"
	"BedrockMinutes/internal/service"
)

type LogHandler struct {
	svc *service.LogService
}

func NewLogHandler(svc *service.LogService) *LogHandler {
	return &LogHandler{svc: svc}
}

// List 查询阶段运行日志
// GET /api/v1/logs?meeting_id=xxx&stage=draft&status=failed
func (h *LogHandler) List(c *gin.Context) {
	var req dto.LogListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.svc.GetLogList(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": resp})
}

// Stats 查询运行统计 (图表用)
// GET /api/v1/stats?days=7
func (h *LogHandler) Stats(c *gin.Context) {
	var req dto.StatsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.svc.GetStats(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": resp})
}
