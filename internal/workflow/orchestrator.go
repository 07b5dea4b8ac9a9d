package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"BedrockMinutes/internal/ai"
	"BedrockMinutes/internal/model"
	"BedrockMinutes/internal/transcribe"
)

// MeetingStore 会议记录的读写 (实现见 repository 层)
type MeetingStore interface {
	Get(ctx context.Context, id string) (*model.MeetingRecord, error)
	Save(ctx context.Context, m *model.MeetingRecord) error
}

// TemplateStore 模板只读查询
type TemplateStore interface {
	Get(ctx context.Context, id string) (*model.Template, error)
}

// Transcriber 语音转文字适配器
type Transcriber interface {
	Transcribe(ctx context.Context, audioKey, language string) (string, error)
}

// Extractor 提取/格式化引擎
type Extractor interface {
	Extract(ctx context.Context, source string, tmpl *model.Template) (*ai.ExtractResult, error)
}

// Optimizer 反馈优化引擎
type Optimizer interface {
	Optimize(ctx context.Context, draft string, feedbacks []model.FeedbackItem, tmpl *model.Template) (*ai.OptimizeResult, error)
}

// RunLogSink 阶段运行日志落库
type RunLogSink interface {
	Record(ctx context.Context, entry *model.StageRunLog)
}

// Config 编排器配置
type Config struct {
	Language                string // 转录语言代码
	MaxAudioDurationSeconds int
}

// Orchestrator 三阶段工作流编排器
//
// 无内存状态: 每次调用都从存储加载最新记录，执行一次状态转换后返回。
// 记录在 reviewing / 终态之间静置，processing / optimizing 只在调用内短暂存在。
type Orchestrator struct {
	meetings    MeetingStore
	templates   TemplateStore
	transcriber Transcriber
	extractor   Extractor
	optimizer   Optimizer
	logs        RunLogSink
	cfg         Config

	now func() time.Time
}

func NewOrchestrator(
	meetings MeetingStore,
	templates TemplateStore,
	transcriber Transcriber,
	extractor Extractor,
	optimizer Optimizer,
	logs RunLogSink,
	cfg Config,
) *Orchestrator {
	if cfg.MaxAudioDurationSeconds <= 0 {
		cfg.MaxAudioDurationSeconds = 7200
	}
	return &Orchestrator{
		meetings:    meetings,
		templates:   templates,
		transcriber: transcriber,
		extractor:   extractor,
		optimizer:   optimizer,
		logs:        logs,
		cfg:         cfg,
		now:         time.Now,
	}
}

// BeginDraft 执行制作阶段: (转录) → 提取 → 进入 reviewing
//
// 仅允许 status=draft 的记录。进入制作后记录先落为 processing，
// 所以并发的第二次调用会拿到 StateError，转录作业绝不会被重复提交。
func (o *Orchestrator) BeginDraft(ctx context.Context, meetingID string) (*model.MeetingRecord, error) {
	start := o.now().UTC()
	log.Printf("🚀 [Draft] 开始制作阶段: meeting=%s", meetingID)

	m, err := o.meetings.Get(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status != model.StatusDraft {
		return nil, &StateError{MeetingID: meetingID, Status: m.Status, Op: "begin_draft"}
	}

	// 音频时长上限在提交任何转录作业之前校验，超限直接拒绝且不改动记录
	if m.InputType == model.InputAudio {
		if m.AudioDurationSeconds == nil || *m.AudioDurationSeconds <= 0 {
			return nil, &ValidationError{Msg: "audio 输入缺少有效的 audio_duration_seconds"}
		}
		if *m.AudioDurationSeconds > o.cfg.MaxAudioDurationSeconds {
			return nil, fmt.Errorf("%w: %ds > %ds", ErrAudioTooLong, *m.AudioDurationSeconds, o.cfg.MaxAudioDurationSeconds)
		}
	}

	// 1. 落为 processing，占住制作阶段
	m.Stages.Draft = &model.ProcessingStage{StartedAt: start, Status: model.StageInProgress}
	m.Status = model.StatusProcessing
	m.UpdatedAt = start
	if err := o.meetings.Save(ctx, m); err != nil {
		return nil, err
	}

	// 2. 获取转录文本
	source, err := o.resolveSource(ctx, m)
	if err != nil {
		o.failStage(meetingID, model.StageDraft, start, err)
		return nil, err
	}

	// 3. 加载模板
	tmpl, err := o.loadTemplate(ctx, m.TemplateID)
	if err != nil {
		o.failStage(meetingID, model.StageDraft, start, err)
		return nil, err
	}

	// 4. AI 提取 (重试在引擎内部完成)
	res, err := o.extractor.Extract(ctx, source, tmpl)
	if err != nil {
		o.failStage(meetingID, model.StageDraft, start, err)
		return nil, err
	}

	// 5. 持久化 draft 完成，进入人工审查
	end := o.now().UTC()
	meta := res.Meta
	meta.ProcessingTimeSeconds = end.Sub(start).Seconds()

	m.Stages.Draft.CompletedAt = &end
	m.Stages.Draft.Status = model.StageCompleted
	m.Stages.Draft.Content = res.Markdown
	m.Stages.Draft.Metadata = meta
	// review 阶段随之打开: 反馈尚未提交，等待外部触发
	m.Stages.Review = &model.ReviewStage{StartedAt: end, Feedbacks: []model.FeedbackItem{}}
	m.Status = model.StatusReviewing
	m.CurrentStage = model.StageReview
	m.UpdatedAt = end
	if err := o.meetings.Save(ctx, m); err != nil {
		return nil, err
	}

	o.recordRunLog(meetingID, model.StageDraft, meta, end.Sub(start), "success", "")
	log.Printf("✅ [Draft] 制作阶段完成: meeting=%s 耗时=%.1fs", meetingID, end.Sub(start).Seconds())
	return m, nil
}

// SubmitFeedback 接收审查反馈并执行优化阶段: review 完成 → final → completed
//
// 空反馈列表同样合法，作为一次纯润色。非 reviewing 状态一律 StateError。
func (o *Orchestrator) SubmitFeedback(ctx context.Context, meetingID string, feedbacks []model.FeedbackItem) (*model.MeetingRecord, error) {
	if err := ValidateFeedbacks(feedbacks); err != nil {
		return nil, err
	}

	start := o.now().UTC()
	log.Printf("🚀 [Final] 开始优化阶段: meeting=%s 反馈数=%d", meetingID, len(feedbacks))

	m, err := o.meetings.Get(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status != model.StatusReviewing {
		return nil, &StateError{MeetingID: meetingID, Status: m.Status, Op: "submit_feedback"}
	}
	if m.Stages.Draft == nil || m.Stages.Draft.Status != model.StageCompleted || m.Stages.Draft.Content == "" {
		return nil, fmt.Errorf("draft 阶段内容缺失，无法优化 (meeting=%s)", meetingID)
	}
	draftContent := m.Stages.Draft.Content

	// 1. 反馈入库，审查阶段随提交关闭，落为 optimizing
	if m.Stages.Review == nil {
		m.Stages.Review = &model.ReviewStage{StartedAt: start}
	}
	m.Stages.Review.Feedbacks = feedbacks
	m.Stages.Review.CompletedAt = &start
	m.Status = model.StatusOptimizing
	m.UpdatedAt = start
	if err := o.meetings.Save(ctx, m); err != nil {
		return nil, err
	}

	// 2. 加载模板
	tmpl, err := o.loadTemplate(ctx, m.TemplateID)
	if err != nil {
		o.failStage(meetingID, model.StageFinal, start, err)
		return nil, err
	}

	// 3. AI 优化 (重试在引擎内部完成)。失败时反馈保持未解决。
	res, err := o.optimizer.Optimize(ctx, draftContent, feedbacks, tmpl)
	if err != nil {
		o.failStage(meetingID, model.StageFinal, start, err)
		return nil, err
	}

	// 4. 持久化 final 完成 + 反馈解决状态
	end := o.now().UTC()
	meta := res.Meta
	meta.ProcessingTimeSeconds = end.Sub(start).Seconds()

	m.Stages.Review.Feedbacks = res.Feedbacks
	m.Stages.Final = &model.ProcessingStage{
		StartedAt:   start,
		CompletedAt: &end,
		Status:      model.StageCompleted,
		Content:     res.Markdown,
		Metadata:    meta,
	}
	m.Status = model.StatusCompleted
	m.CurrentStage = model.StageFinal
	m.UpdatedAt = end
	if err := o.meetings.Save(ctx, m); err != nil {
		return nil, err
	}

	o.recordRunLog(meetingID, model.StageFinal, meta, end.Sub(start), "success", "")
	log.Printf("✅ [Final] 优化阶段完成: meeting=%s 耗时=%.1fs", meetingID, end.Sub(start).Seconds())
	return m, nil
}

// ValidateFeedbacks 校验反馈负载，任何状态变更之前调用
func ValidateFeedbacks(feedbacks []model.FeedbackItem) error {
	for i, fb := range feedbacks {
		if !model.ValidFeedbackType(fb.FeedbackType) {
			return &ValidationError{Msg: fmt.Sprintf("反馈 #%d 类型无效: %q", i, fb.FeedbackType)}
		}
		if _, err := model.ParseLocation(fb.Location); err != nil {
			return &ValidationError{Msg: fmt.Sprintf("反馈 #%d %v", i, err)}
		}
		if fb.Comment == "" {
			return &ValidationError{Msg: fmt.Sprintf("反馈 #%d 缺少 comment", i)}
		}
		if len([]rune(fb.Comment)) > 1000 {
			return &ValidationError{Msg: fmt.Sprintf("反馈 #%d comment 超过 1000 字符", i)}
		}
	}
	return nil
}

// resolveSource 取得供提取使用的文本: 音频先转录并回存，文本直接使用
func (o *Orchestrator) resolveSource(ctx context.Context, m *model.MeetingRecord) (string, error) {
	switch m.InputType {
	case model.InputAudio:
		transcript, err := o.transcriber.Transcribe(ctx, m.AudioKey, o.cfg.Language)
		if err != nil {
			return "", err
		}
		log.Printf("📝 转录完成: meeting=%s 长度=%d 字符", m.ID, len(transcript))

		// 转录文本回存，失败后重建记录时可追溯
		m.OriginalText = transcript
		if err := o.meetings.Save(ctx, m); err != nil {
			return "", err
		}
		return transcript, nil

	case model.InputText:
		if m.OriginalText == "" {
			return "", fmt.Errorf("text 输入缺少 original_text (meeting=%s)", m.ID)
		}
		return m.OriginalText, nil

	default:
		return "", fmt.Errorf("未知的 input_type: %s", m.InputType)
	}
}

// loadTemplate 加载模板，不存在时退回默认模板
func (o *Orchestrator) loadTemplate(ctx context.Context, templateID string) (*model.Template, error) {
	tmpl, err := o.templates.Get(ctx, templateID)
	if err == nil {
		return tmpl, nil
	}
	if templateID != model.DefaultTemplateID {
		log.Printf("⚠️ 模板 %s 不存在，回退默认模板", templateID)
		return o.templates.Get(ctx, model.DefaultTemplateID)
	}
	return nil, err
}

// failStage 阶段失败: 记录错误详情并把整条记录落为 failed。
// 这是失败路径上唯一的一次持久化写，记录不会卡在瞬态。
func (o *Orchestrator) failStage(meetingID string, stage model.PipelineStage, startedAt time.Time, cause error) {
	// 失败落库用独立的短超时上下文，不受调用方取消影响
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := o.now().UTC()

	m, err := o.meetings.Get(ctx, meetingID)
	if err != nil {
		log.Printf("❌ 无法更新失败状态: meeting=%s err=%v", meetingID, err)
		return
	}

	failed := &model.ProcessingStage{
		StartedAt:   startedAt,
		CompletedAt: &now,
		Status:      model.StageFailed,
		Metadata:    model.StageMetadata{Error: errorClass(cause) + ": " + truncate(cause.Error(), 500)},
	}
	switch stage {
	case model.StageDraft:
		if m.Stages.Draft != nil {
			failed.Metadata.Model = m.Stages.Draft.Metadata.Model
		}
		m.Stages.Draft = failed
	case model.StageFinal:
		m.Stages.Final = failed
	}
	m.Status = model.StatusFailed
	m.UpdatedAt = now

	if err := o.meetings.Save(ctx, m); err != nil {
		log.Printf("❌ 失败状态落库失败: meeting=%s err=%v", meetingID, err)
		return
	}

	o.recordRunLog(meetingID, stage, failed.Metadata, now.Sub(startedAt), "failed", failed.Metadata.Error)
	log.Printf("❌ [%s] 阶段失败: meeting=%s err=%v", stage, meetingID, cause)
}

// errorClass 给失败详情附带错误类别，方便调用方判断是否值得重建记录
func errorClass(err error) string {
	var extractErr *ai.ExtractionError
	if errors.As(err, &extractErr) {
		return "AIExtractionError"
	}
	var optimizeErr *ai.OptimizationError
	if errors.As(err, &optimizeErr) {
		return "AIOptimizationError"
	}
	var sttErr *transcribe.TranscriptionError
	if errors.As(err, &sttErr) {
		return "TranscriptionError"
	}
	return "WorkflowError"
}

func (o *Orchestrator) recordRunLog(meetingID string, stage model.PipelineStage, meta model.StageMetadata, d time.Duration, status, errMsg string) {
	if o.logs == nil {
		return
	}
	entry := &model.StageRunLog{
		MeetingID:  meetingID,
		Stage:      string(stage),
		Model:      meta.Model,
		DurationMs: d.Milliseconds(),
		Status:     status,
		ErrorMsg:   errMsg,
	}
	if meta.TokensUsed != nil {
		entry.InputTokens = meta.TokensUsed.Input
		entry.OutputTokens = meta.TokensUsed.Output
		entry.TotalTokens = meta.TokensUsed.Input + meta.TokensUsed.Output
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o.logs.Record(ctx, entry)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
