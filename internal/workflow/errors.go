package workflow

import (
	"errors"
	"fmt"

	"BedrockMinutes/internal/model"
)

// StateError 调用方请求了当前状态下不合法的转换，记录不会被改动
type StateError struct {
	MeetingID string
	Status    model.MeetingStatus
	Op        string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("会议 %s 状态为 %s，不允许执行 %s", e.MeetingID, e.Status, e.Op)
}

// ErrAudioTooLong 音频时长超出上限，在提交任何转录作业前拒绝
var ErrAudioTooLong = errors.New("音频时长超出上限")

// ValidationError 反馈负载校验失败，在任何状态变更前返回给调用方
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
