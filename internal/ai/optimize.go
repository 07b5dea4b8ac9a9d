package ai

import (
	"context"
	"time"

	"BedrockMinutes/internal/model"
)

// OptimizeResult 优化引擎的输出。Feedbacks 是标记为已解决的反馈副本。
type OptimizeResult struct {
	Markdown  string
	Meta      model.StageMetadata
	Feedbacks []model.FeedbackItem
}

// Optimizer 反馈优化引擎: 草稿 + 反馈列表 → 修订后的最终版
//
// 约定: 一次成功的优化调用视为已吸收全部提交的反馈，不做逐条验证。
type Optimizer struct {
	inv    Invoker
	policy RetryPolicy
	now    func() time.Time
}

func NewOptimizer(inv Invoker, policy RetryPolicy) *Optimizer {
	return &Optimizer{inv: inv, policy: policy, now: time.Now}
}

// Optimize 根据反馈修订草稿。反馈列表允许为空，此时仅做润色。
// 失败时反馈保持未解决状态。
func (o *Optimizer) Optimize(ctx context.Context, draft string, feedbacks []model.FeedbackItem, tmpl *model.Template) (*OptimizeResult, error) {
	prompt, err := renderOptimizePrompt(draft, feedbacks)
	if err != nil {
		return nil, &OptimizationError{Attempts: 0, Err: err}
	}

	var invoked *InvokeResult
	attempts, err := o.policy.run(ctx, "反馈优化", func() error {
		// 稍高的温度以允许创造性改进
		res, err := o.inv.Invoke(ctx, prompt, InvokeOptions{Temperature: 0.4})
		if err != nil {
			return err
		}
		invoked = res
		return nil
	})
	if err != nil {
		return nil, &OptimizationError{Attempts: attempts, Err: err}
	}

	// 调用成功: 全部反馈标记为已解决，时间戳取调用完成时刻
	resolvedAt := o.now().UTC()
	resolved := make([]model.FeedbackItem, len(feedbacks))
	for i, fb := range feedbacks {
		fb.IsResolved = true
		t := resolvedAt
		fb.ResolvedAt = &t
		resolved[i] = fb
	}

	return &OptimizeResult{
		Markdown: invoked.Text,
		Meta: model.StageMetadata{
			Model:      o.inv.ModelID(),
			TokensUsed: &model.TokensUsed{Input: invoked.InputTokens, Output: invoked.OutputTokens},
		},
		Feedbacks: resolved,
	}, nil
}
