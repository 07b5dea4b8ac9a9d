package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"BedrockMinutes/internal/dto"
	"BedrockMinutes/internal/model"
	"BedrockMinutes/internal/repository"
	"BedrockMinutes/internal/service"
	"BedrockMinutes/internal/workflow"
)

type MeetingHandler struct {
	svc *service.MeetingService
}

func NewMeetingHandler(svc *service.MeetingService) *MeetingHandler {
	return &MeetingHandler{svc: svc}
}

// Create 创建会议纪要 (文字或音频)
// POST /api/v1/meetings
// Form-Data: input_type=audio|text, text=..., file=BINARY, audio_duration_seconds=1800, template_id=default
func (h *MeetingHandler) Create(c *gin.Context) {
	var req dto.CreateMeetingReq
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var m *model.MeetingRecord
	var err error

	switch model.InputType(req.InputType) {
	case model.InputText:
		m, err = h.svc.CreateFromText(c.Request.Context(), req.Text, req.TemplateID)

	case model.InputAudio:
		file, ferr := c.FormFile("file")
		if ferr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "请上传音频文件"})
			return
		}
		m, err = h.svc.CreateFromAudio(c.Request.Context(), file, req.AudioDurationSeconds, req.TemplateID)
	}

	if err != nil {
		h.renderError(c, err)
		return
	}

	// 202: 记录已创建，制作阶段在后台执行
	c.JSON(http.StatusAccepted, dto.CreateMeetingResp{
		MeetingID: m.ID,
		Status:    string(m.Status),
		Message:   "会议纪要已创建，正在后台生成初稿",
	})
}

// Get 查询单条会议记录
// GET /api/v1/meetings/:id
func (h *MeetingHandler) Get(c *gin.Context) {
	m, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": m})
}

// List 分页列出会议记录
// GET /api/v1/meetings?page=1&page_size=20&status=reviewing
func (h *MeetingHandler) List(c *gin.Context) {
	var req dto.MeetingListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.svc.List(c.Request.Context(), req)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": resp})
}

// SubmitFeedback 提交审查反馈，触发优化阶段
// POST /api/v1/meetings/:id/feedback
func (h *MeetingHandler) SubmitFeedback(c *gin.Context) {
	var req dto.SubmitFeedbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	meetingID := c.Param("id")
	if err := h.svc.SubmitFeedback(c.Request.Context(), meetingID, req); err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.SubmitFeedbackResp{
		MeetingID: meetingID,
		Status:    string(model.StatusOptimizing),
		Message:   "反馈已接收，正在后台优化纪要",
	})
}

// Export 导出纪要 (markdown 下载)
// GET /api/v1/meetings/:id/export?stage=final
func (h *MeetingHandler) Export(c *gin.Context) {
	filename, content, err := h.svc.Export(c.Request.Context(), c.Param("id"), c.Query("stage"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(content))
}

// renderError 统一错误映射: 参数类 400, 缺记录 404, 状态冲突 409, 其余 500
func (h *MeetingHandler) renderError(c *gin.Context, err error) {
	var stateErr *workflow.StateError
	var validationErr *workflow.ValidationError

	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "会议记录不存在"})
	case errors.As(err, &stateErr),
		errors.Is(err, repository.ErrConcurrentModification),
		errors.Is(err, service.ErrExportNotCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &validationErr),
		errors.Is(err, service.ErrEmptyText),
		errors.Is(err, service.ErrUnsupportedFormat),
		errors.Is(err, service.ErrAudioTooLarge),
		errors.Is(err, workflow.ErrAudioTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
