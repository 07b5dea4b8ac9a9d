package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"BedrockMinutes/internal/model"
)

// fakeInvoker 按调用顺序返回预设结果
type fakeInvoker struct {
	replies []invokeReply
	calls   int
	prompts []string
	opts    []InvokeOptions
}

type invokeReply struct {
	res *InvokeResult
	err error
}

func (f *fakeInvoker) Invoke(_ context.Context, prompt string, opts InvokeOptions) (*InvokeResult, error) {
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	i := f.calls
	f.calls++
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	r := f.replies[i]
	return r.res, r.err
}

func (f *fakeInvoker) ModelID() string { return "amazon.nova-pro-v1:0" }

// completeDraft 含默认模板全部必填字段的输出
const completeDraft = `## 会议基本信息
**会议主题**: 发布计划评审
**会议日期**: 2026-03-01

## 会议内容
**讨论议题**: v2 发布时间与回滚预案`

func TestExtractHappyPath(t *testing.T) {
	inv := &fakeInvoker{replies: []invokeReply{
		{res: &InvokeResult{Text: completeDraft, InputTokens: 1200, OutputTokens: 300}},
	}}
	e := NewExtractor(inv, fastPolicy())

	res, err := e.Extract(context.Background(), "[spk_0 - 0.0s-5.0s] 我们先过一下发布计划", model.DefaultTemplate())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Markdown != completeDraft {
		t.Fatalf("markdown = %q", res.Markdown)
	}
	if res.Meta.Model != "amazon.nova-pro-v1:0" {
		t.Fatalf("model = %q", res.Meta.Model)
	}
	if res.Meta.TokensUsed == nil || res.Meta.TokensUsed.Input != 1200 || res.Meta.TokensUsed.Output != 300 {
		t.Fatalf("tokens = %+v", res.Meta.TokensUsed)
	}
	if inv.opts[0].Temperature != 0.3 {
		t.Fatalf("temperature = %v, want 0.3", inv.opts[0].Temperature)
	}
	if !strings.Contains(inv.prompts[0], "会议主题") || !strings.Contains(inv.prompts[0], "我们先过一下发布计划") {
		t.Fatal("prompt missing template structure or transcript")
	}
}

func TestExtractRetriesOnMissingRequiredSections(t *testing.T) {
	// 第一次输出缺少必填字段，第二次补全
	inv := &fakeInvoker{replies: []invokeReply{
		{res: &InvokeResult{Text: "## 会议基本信息\n**会议主题**: 发布计划"}},
		{res: &InvokeResult{Text: completeDraft, InputTokens: 10, OutputTokens: 20}},
	}}
	e := NewExtractor(inv, fastPolicy())

	res, err := e.Extract(context.Background(), "transcript", model.DefaultTemplate())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if inv.calls != 2 {
		t.Fatalf("calls = %d, want retry on section validation failure", inv.calls)
	}
	if res.Markdown != completeDraft {
		t.Fatalf("markdown = %q", res.Markdown)
	}
}

func TestExtractExhaustsRetries(t *testing.T) {
	inv := &fakeInvoker{replies: []invokeReply{
		{res: &InvokeResult{Text: "不完整的输出"}},
	}}
	e := NewExtractor(inv, fastPolicy())

	_, err := e.Extract(context.Background(), "transcript", model.DefaultTemplate())
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("err = %v, want ExtractionError", err)
	}
	if exErr.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", exErr.Attempts)
	}
	var sv *SectionValidationError
	if !errors.As(err, &sv) {
		t.Fatalf("cause = %v, want SectionValidationError", exErr.Err)
	}
	if inv.calls != 3 {
		t.Fatalf("calls = %d, want 3", inv.calls)
	}
}

func TestExtractFatalErrorNotRetried(t *testing.T) {
	inv := &fakeInvoker{replies: []invokeReply{
		{err: errors.New("ValidationException: malformed request")},
	}}
	e := NewExtractor(inv, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond})

	_, err := e.Extract(context.Background(), "transcript", model.DefaultTemplate())
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("err = %v, want ExtractionError", err)
	}
	if inv.calls != 1 {
		t.Fatalf("calls = %d, fatal error must not be retried", inv.calls)
	}
}
