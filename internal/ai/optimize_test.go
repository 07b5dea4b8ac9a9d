package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"BedrockMinutes/internal/model"
)

func sampleFeedbacks() []model.FeedbackItem {
	created := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	return []model.FeedbackItem{
		{ID: "fb-1", CreatedAt: created, FeedbackType: model.FeedbackInaccurate, Location: "section:会议内容,line:2", Comment: "回滚预案描述有误"},
		{ID: "fb-2", CreatedAt: created, FeedbackType: model.FeedbackImprovement, Location: model.LocationGlobal, Comment: "整体语气更正式一些"},
	}
}

func TestOptimizeResolvesAllFeedback(t *testing.T) {
	inv := &fakeInvoker{replies: []invokeReply{
		{res: &InvokeResult{Text: "修订后的纪要", InputTokens: 900, OutputTokens: 250}},
	}}
	o := NewOptimizer(inv, fastPolicy())

	input := sampleFeedbacks()
	res, err := o.Optimize(context.Background(), completeDraft, input, model.DefaultTemplate())
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}

	if len(res.Feedbacks) != 2 {
		t.Fatalf("feedbacks = %d, want 2", len(res.Feedbacks))
	}
	for i, fb := range res.Feedbacks {
		if !fb.IsResolved || fb.ResolvedAt == nil {
			t.Errorf("feedback #%d not resolved: %+v", i, fb)
		}
	}
	// 入参不被修改
	for i, fb := range input {
		if fb.IsResolved || fb.ResolvedAt != nil {
			t.Errorf("input feedback #%d mutated", i)
		}
	}
	if inv.opts[0].Temperature != 0.4 {
		t.Fatalf("temperature = %v, want 0.4", inv.opts[0].Temperature)
	}
}

func TestOptimizePromptSeparatesGlobalAndLocated(t *testing.T) {
	inv := &fakeInvoker{replies: []invokeReply{
		{res: &InvokeResult{Text: "修订后的纪要"}},
	}}
	o := NewOptimizer(inv, fastPolicy())

	if _, err := o.Optimize(context.Background(), completeDraft, sampleFeedbacks(), model.DefaultTemplate()); err != nil {
		t.Fatalf("optimize: %v", err)
	}

	prompt := inv.prompts[0]
	if !strings.Contains(prompt, "全局反馈") || !strings.Contains(prompt, "整体语气更正式一些") {
		t.Error("global feedback missing from prompt")
	}
	if !strings.Contains(prompt, "定位反馈") || !strings.Contains(prompt, "section:会议内容,line:2") {
		t.Error("located feedback missing from prompt")
	}
}

func TestOptimizeEmptyFeedbackIsPolishPass(t *testing.T) {
	inv := &fakeInvoker{replies: []invokeReply{
		{res: &InvokeResult{Text: "润色后的纪要"}},
	}}
	o := NewOptimizer(inv, fastPolicy())

	res, err := o.Optimize(context.Background(), completeDraft, nil, model.DefaultTemplate())
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if len(res.Feedbacks) != 0 {
		t.Fatalf("feedbacks = %v, want empty", res.Feedbacks)
	}
	if !strings.Contains(inv.prompts[0], "轻量润色") {
		t.Error("empty feedback should request a polish pass")
	}
}

func TestOptimizeFailureKeepsFeedbackUnresolved(t *testing.T) {
	inv := &fakeInvoker{replies: []invokeReply{
		{err: &RetryableError{Err: errors.New("model timeout")}},
	}}
	o := NewOptimizer(inv, fastPolicy())

	input := sampleFeedbacks()
	_, err := o.Optimize(context.Background(), completeDraft, input, model.DefaultTemplate())
	var opErr *OptimizationError
	if !errors.As(err, &opErr) {
		t.Fatalf("err = %v, want OptimizationError", err)
	}
	if opErr.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", opErr.Attempts)
	}
	for i, fb := range input {
		if fb.IsResolved || fb.ResolvedAt != nil {
			t.Errorf("feedback #%d must stay unresolved on failure", i)
		}
	}
}
