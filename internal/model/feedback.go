package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FeedbackType 反馈类型
type FeedbackType string

const (
	FeedbackInaccurate  FeedbackType = "inaccurate"  // 内容不准确
	FeedbackMissing     FeedbackType = "missing"     // 遗漏内容
	FeedbackImprovement FeedbackType = "improvement" // 改进建议
	FeedbackFormatting  FeedbackType = "formatting"  // 格式问题
)

// ValidFeedbackType 判断反馈类型是否合法
func ValidFeedbackType(t FeedbackType) bool {
	switch t {
	case FeedbackInaccurate, FeedbackMissing, FeedbackImprovement, FeedbackFormatting:
		return true
	}
	return false
}

// LocationGlobal 表示作用于整篇文档的反馈
const LocationGlobal = "global"

// FeedbackItem 单条用户反馈，内嵌在 review 阶段中。
// is_resolved 在提交时为 false，final 阶段成功吸收后置为 true。
type FeedbackItem struct {
	ID           string       `json:"id"`
	CreatedAt    time.Time    `json:"created_at"`
	FeedbackType FeedbackType `json:"feedback_type"`
	Location     string       `json:"location"` // "global" 或 "section:<名称>,line:<行号>"
	Comment      string       `json:"comment"`
	IsResolved   bool         `json:"is_resolved"`
	ResolvedAt   *time.Time   `json:"resolved_at,omitempty"`
}

// IsGlobal 判断是否为全局优化建议
func (f *FeedbackItem) IsGlobal() bool {
	return f.Location == LocationGlobal
}

// Location 反馈定位的解析结果
type Location struct {
	Global  bool
	Section string
	Line    int
}

// ParseLocation 解析反馈定位字符串
//
// 合法格式:
//   - "global"
//   - "section:<名称>,line:<行号>"
func ParseLocation(s string) (Location, error) {
	if s == LocationGlobal {
		return Location{Global: true}, nil
	}

	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return Location{}, fmt.Errorf("location 格式必须为 'global' 或 'section:<名称>,line:<行号>': %q", s)
	}

	secPart := parts[0]
	linePart := strings.TrimSpace(parts[1])

	secName, ok := strings.CutPrefix(secPart, "section:")
	if !ok || secName == "" {
		return Location{}, fmt.Errorf("location 第一部分必须为 'section:<名称>': %q", s)
	}

	lineStr, ok := strings.CutPrefix(linePart, "line:")
	if !ok {
		return Location{}, fmt.Errorf("location 第二部分必须为 'line:<行号>': %q", s)
	}
	line, err := strconv.Atoi(lineStr)
	if err != nil || line < 1 {
		return Location{}, fmt.Errorf("location 行号无效: %q", s)
	}

	return Location{Section: secName, Line: line}, nil
}
