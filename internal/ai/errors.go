package ai

import (
	"errors"
	"fmt"
	"strings"
)

// RetryableError 瞬时故障 (网络抖动、限流、模型超时)，允许重试
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return "瞬时故障: " + e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// SectionValidationError 提取结果缺少必填章节字段。
// 属于可重试的软校验失败，与网络类瞬时错误分开建模，便于分别测试。
type SectionValidationError struct {
	Missing []string
}

func (e *SectionValidationError) Error() string {
	return "提取结果缺少必填字段: " + strings.Join(e.Missing, ", ")
}

// ExtractionError 提取引擎重试耗尽或遇到致命错误
type ExtractionError struct {
	Attempts int
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("AI 提取失败 (已尝试 %d 次): %v", e.Attempts, e.Err)
}
func (e *ExtractionError) Unwrap() error { return e.Err }

// OptimizationError 优化引擎重试耗尽或遇到致命错误
type OptimizationError struct {
	Attempts int
	Err      error
}

func (e *OptimizationError) Error() string {
	return fmt.Sprintf("AI 优化失败 (已尝试 %d 次): %v", e.Attempts, e.Err)
}
func (e *OptimizationError) Unwrap() error { return e.Err }

// retryable 判断错误是否允许再次尝试
func retryable(err error) bool {
	var re *RetryableError
	if errors.As(err, &re) {
		return true
	}
	var sv *SectionValidationError
	return errors.As(err, &sv)
}
