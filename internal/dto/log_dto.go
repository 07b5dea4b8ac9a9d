package dto

import "time"

// LogListReq 查询阶段运行日志请求
type LogListReq struct {
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=20"`
	MeetingID string `form:"meeting_id"` // 选填，筛选特定会议
	Stage     string `form:"stage"`      // 选填: draft / final
	Status    string `form:"status"`     // success, failed
}

// LogListResp 日志列表响应
type LogListResp struct {
	Total int64        `json:"total"`
	List  []LogSummary `json:"list"`
}

type LogSummary struct {
	ID          uint      `json:"id"`
	TraceID     string    `json:"trace_id"`
	MeetingID   string    `json:"meeting_id"`
	Stage       string    `json:"stage"`
	Model       string    `json:"model"`
	TotalTokens int       `json:"total_tokens"`
	DurationMs  int64     `json:"duration_ms"`
	Status      string    `json:"status"`
	ErrorMsg    string    `json:"error_msg,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// StatsReq 统计请求
type StatsReq struct {
	Days int `form:"days,default=7"` // 最近几天
}

// StatsResp 统计响应
type StatsResp struct {
	TotalRuns     int64         `json:"total_runs"`
	TotalTokens   int64         `json:"total_tokens"`
	AvgDurationMs int64         `json:"avg_duration_ms"`
	FailedRuns    int64         `json:"failed_runs"`
	DailyStats    []DailyMetric `json:"daily_stats"`
}

type DailyMetric struct {
	Date   string `json:"date"`
	Tokens int64  `json:"tokens"`
	Runs   int64  `json:"runs"`
}
