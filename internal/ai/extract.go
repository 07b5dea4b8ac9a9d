package ai

import (
	"context"
	"log"
	"strings"

	"BedrockMinutes/internal/model"
)

// ExtractResult 提取引擎的输出
type ExtractResult struct {
	Markdown string
	Meta     model.StageMetadata
}

// Extractor 提取/格式化引擎: 转录文本 + 模板 → 结构化草稿
type Extractor struct {
	inv    Invoker
	policy RetryPolicy
}

func NewExtractor(inv Invoker, policy RetryPolicy) *Extractor {
	return &Extractor{inv: inv, policy: policy}
}

// Extract 从转录/原始文本中提取会议信息并按模板格式化
//
// 单次调用内完成重试: 瞬时错误与"缺少必填章节"的软校验失败都会
// 触发重试，重试耗尽返回 ExtractionError。
func (e *Extractor) Extract(ctx context.Context, source string, tmpl *model.Template) (*ExtractResult, error) {
	prompt, err := renderExtractPrompt(source, tmpl)
	if err != nil {
		return nil, &ExtractionError{Attempts: 0, Err: err}
	}

	var result *ExtractResult
	attempts, err := e.policy.run(ctx, "会议信息提取", func() error {
		res, err := e.inv.Invoke(ctx, prompt, InvokeOptions{Temperature: 0.3})
		if err != nil {
			return err
		}

		// 校验输出包含模板的全部必填字段
		if missing := missingRequiredLabels(res.Text, tmpl); len(missing) > 0 {
			log.Printf("⚠️ 提取结果缺少必填字段: %s", strings.Join(missing, ", "))
			return &SectionValidationError{Missing: missing}
		}

		result = &ExtractResult{
			Markdown: res.Text,
			Meta: model.StageMetadata{
				Model:      e.inv.ModelID(),
				TokensUsed: &model.TokensUsed{Input: res.InputTokens, Output: res.OutputTokens},
			},
		}
		return nil
	})
	if err != nil {
		return nil, &ExtractionError{Attempts: attempts, Err: err}
	}
	return result, nil
}

// missingRequiredLabels 返回未出现在输出中的必填字段标签
func missingRequiredLabels(content string, tmpl *model.Template) []string {
	var missing []string
	for _, label := range tmpl.RequiredLabels() {
		if !strings.Contains(content, label) {
			missing = append(missing, label)
		}
	}
	return missing
}
