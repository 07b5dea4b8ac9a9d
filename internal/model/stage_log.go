package model

import (
	"time"

	"gorm.io/datatypes"
)

// StageRunLog 记录每一次阶段执行的详细信息 (监控用)
type StageRunLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// 索引字段
	MeetingID string `gorm:"index;not null" json:"meeting_id"`
	Stage     string `gorm:"index;not null" json:"stage"` // draft / final
	TraceID   string `gorm:"index" json:"trace_id"`

	// 统计指标
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	TotalTokens  int    `json:"total_tokens"`
	DurationMs   int64  `json:"duration_ms"`

	Status   string `gorm:"size:20" json:"status"` // success, failed
	ErrorMsg string `gorm:"type:text" json:"error_msg"`

	// 扩展字段 (留给未来存详细步骤 JSON)
	MetaInfo datatypes.JSON `json:"meta_info"`
}
