package model

import (
	"errors"
	"fmt"
	"time"
)

// MeetingStatus 会议记录的处理状态
type MeetingStatus string

const (
	StatusDraft      MeetingStatus = "draft"      // 已创建，等待制作阶段
	StatusProcessing MeetingStatus = "processing" // 制作阶段进行中 (瞬态)
	StatusReviewing  MeetingStatus = "reviewing"  // 等待人工审查反馈
	StatusOptimizing MeetingStatus = "optimizing" // 优化阶段进行中 (瞬态)
	StatusCompleted  MeetingStatus = "completed"  // 终态: 成功
	StatusFailed     MeetingStatus = "failed"     // 终态: 失败
)

// IsTerminal 判断是否为终态，终态不再接受任何状态转换
func (s MeetingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// InputType 输入类型，创建时固定，之后不可变
type InputType string

const (
	InputAudio InputType = "audio"
	InputText  InputType = "text"
)

// PipelineStage 流水线阶段名
type PipelineStage string

const (
	StageDraft  PipelineStage = "draft"
	StageReview PipelineStage = "review"
	StageFinal  PipelineStage = "final"
)

// StageStatus 单个阶段的状态
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageCompleted  StageStatus = "completed"
	StageFailed     StageStatus = "failed"
)

// TokensUsed LLM 令牌消耗
type TokensUsed struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// StageMetadata 阶段处理元数据，仅作展示，不参与控制流
type StageMetadata struct {
	ProcessingTimeSeconds float64     `json:"processing_time_seconds,omitempty"`
	TokensUsed            *TokensUsed `json:"tokens_used,omitempty"`
	Model                 string      `json:"model,omitempty"`
	Error                 string      `json:"error,omitempty"` // 失败时记录错误类别与信息
}

// ProcessingStage 生成型阶段 (draft / final)，持有 Markdown 内容
type ProcessingStage struct {
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Status      StageStatus   `json:"status"`
	Content     string        `json:"content,omitempty"`
	Metadata    StageMetadata `json:"metadata"`
}

// ReviewStage 审查阶段，持有用户反馈，无生成内容
type ReviewStage struct {
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Feedbacks   []FeedbackItem `json:"feedbacks"`
}

// StageSet 各阶段数据。用带类型的结构体代替松散的 map，
// "review 有反馈无内容、draft/final 有内容无反馈" 由类型保证。
type StageSet struct {
	Draft  *ProcessingStage `json:"draft,omitempty"`
	Review *ReviewStage     `json:"review,omitempty"`
	Final  *ProcessingStage `json:"final,omitempty"`
}

// MeetingRecord 会议记录聚合根，每个会议一条
//
// 持久化为对象存储中的单个 JSON 文档: meetings/{id}.json。
// 除编排器外，任何组件不得直接写 status / current_stage / stages。
type MeetingRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Status       MeetingStatus `json:"status"`
	CurrentStage PipelineStage `json:"current_stage"`

	InputType            InputType `json:"input_type"`
	AudioKey             string    `json:"audio_key,omitempty"` // input_type=audio 时存在
	AudioDurationSeconds *int      `json:"audio_duration_seconds,omitempty"`
	OriginalText         string    `json:"original_text,omitempty"` // 原始文本或转录结果

	TemplateID string   `json:"template_id"`
	Stages     StageSet `json:"stages"`

	// 乐观并发控制的版本号，由仓库层在每次写入时递增
	Version int64 `json:"version"`
}

// Validate 校验记录自身的不变量
func (m *MeetingRecord) Validate() error {
	if m.ID == "" {
		return errors.New("会议记录缺少 id")
	}

	switch m.InputType {
	case InputAudio:
		if m.AudioKey == "" {
			return errors.New("input_type 为 audio 时必须提供 audio_key")
		}
		if m.AudioDurationSeconds == nil {
			return errors.New("input_type 为 audio 时必须提供 audio_duration_seconds")
		}
	case InputText:
		if m.OriginalText == "" {
			return errors.New("input_type 为 text 时必须提供 original_text")
		}
	default:
		return fmt.Errorf("无效的 input_type: %s", m.InputType)
	}

	// 阶段顺序不变量
	if m.Stages.Review != nil {
		if m.Stages.Draft == nil || m.Stages.Draft.Status != StageCompleted {
			return errors.New("draft 阶段未完成前不允许存在 review 阶段")
		}
	}
	if m.Stages.Final != nil {
		if m.Stages.Review == nil || m.Stages.Review.CompletedAt == nil {
			return errors.New("review 阶段未完成前不允许存在 final 阶段")
		}
	}

	// 反馈解决状态与时间戳成对出现
	if m.Stages.Review != nil {
		for i, fb := range m.Stages.Review.Feedbacks {
			if fb.IsResolved != (fb.ResolvedAt != nil) {
				return fmt.Errorf("反馈 #%d 的 is_resolved 与 resolved_at 不一致", i)
			}
		}
	}

	// 状态与阶段的对应关系
	if m.Status == StatusReviewing {
		if m.Stages.Review == nil {
			return errors.New("status=reviewing 时必须已创建 review 阶段")
		}
		if m.Stages.Final != nil && m.Stages.Final.Status != StagePending {
			return errors.New("status=reviewing 时不允许 final 阶段已经开始")
		}
	}
	if m.Status == StatusCompleted {
		if m.Stages.Final == nil || m.Stages.Final.Status != StageCompleted {
			return errors.New("status=completed 时 final 阶段必须已完成")
		}
	}
	if m.Stages.Final != nil && m.Stages.Final.Status == StageCompleted && m.Status != StatusCompleted {
		return errors.New("final 阶段已完成时 status 必须为 completed")
	}

	if m.UpdatedAt.Before(m.CreatedAt) {
		return errors.New("updated_at 不能早于 created_at")
	}
	return nil
}
