package dto

import (
	"time"

	"BedrockMinutes/internal/model"
)

// CreateMeetingReq 创建会议纪要请求 (multipart 表单)
//
// input_type=text 时必须有 text 字段；
// input_type=audio 时必须有 file 文件 + audio_duration_seconds。
type CreateMeetingReq struct {
	InputType            string `form:"input_type" binding:"required,oneof=audio text"`
	Text                 string `form:"text"`
	TemplateID           string `form:"template_id"`
	AudioDurationSeconds int    `form:"audio_duration_seconds"`
}

// CreateMeetingResp 202 响应: 记录已创建，制作阶段在后台执行
type CreateMeetingResp struct {
	MeetingID string `json:"meeting_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// FeedbackInput 单条审查反馈
type FeedbackInput struct {
	FeedbackType string `json:"feedback_type" binding:"required,oneof=inaccurate missing improvement formatting"`
	Location     string `json:"location" binding:"required"`
	Comment      string `json:"comment" binding:"required,max=1000"`
}

// SubmitFeedbackReq 反馈批次。空列表合法，表示直接进入优化润色。
type SubmitFeedbackReq struct {
	Feedbacks []FeedbackInput `json:"feedbacks"`
}

// SubmitFeedbackResp 202 响应: 优化阶段在后台执行
type SubmitFeedbackResp struct {
	MeetingID string `json:"meeting_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// MeetingListReq 列表查询
type MeetingListReq struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Status   string `form:"status"` // 选填，按状态筛选
}

// MeetingSummary 列表项: 不含各阶段正文
type MeetingSummary struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	CurrentStage string    `json:"current_stage"`
	InputType    string    `json:"input_type"`
	TemplateID   string    `json:"template_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MeetingListResp 列表响应
type MeetingListResp struct {
	Total int64            `json:"total"`
	List  []MeetingSummary `json:"list"`
}

// ToSummary 把完整记录投影成列表项
func ToSummary(m *model.MeetingRecord) MeetingSummary {
	return MeetingSummary{
		ID:           m.ID,
		Status:       string(m.Status),
		CurrentStage: string(m.CurrentStage),
		InputType:    string(m.InputType),
		TemplateID:   m.TemplateID,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
