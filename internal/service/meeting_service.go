package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"BedrockMinutes/internal/conf"
	"BedrockMinutes/internal/dto"
	"BedrockMinutes/internal/model"
	"BedrockMinutes/internal/repository"
	"BedrockMinutes/internal/workflow"
)

// 接口入口处的快速校验错误，handler 映射为 400
var (
	ErrEmptyText          = errors.New("text 输入内容为空")
	ErrUnsupportedFormat  = errors.New("不支持的音频格式")
	ErrAudioTooLarge      = errors.New("音频文件超过大小上限")
	ErrExportNotCompleted = errors.New("会议纪要尚未完成，无法导出")
)

type MeetingService struct {
	repo *repository.MeetingRepository
	orch *workflow.Orchestrator
	cfg  *conf.Config
}

func NewMeetingService(repo *repository.MeetingRepository, orch *workflow.Orchestrator, cfg *conf.Config) *MeetingService {
	return &MeetingService{repo: repo, orch: orch, cfg: cfg}
}

// CreateFromText 从文字记录创建会议纪要
//
// 记录以 draft 状态落库后立刻返回，制作阶段由后台 goroutine 执行。
func (s *MeetingService) CreateFromText(ctx context.Context, text, templateID string) (*model.MeetingRecord, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	m := s.newRecord(model.InputText, templateID)
	m.OriginalText = text

	if err := s.repo.Save(ctx, m); err != nil {
		return nil, err
	}
	s.triggerDraft(m.ID)
	return m, nil
}

// CreateFromAudio 从上传的音频文件创建会议纪要
//
// 格式/大小/时长三项都在落库之前校验，不合法的音频根本不会留下记录。
func (s *MeetingService) CreateFromAudio(ctx context.Context, fileHeader *multipart.FileHeader, durationSeconds int, templateID string) (*model.MeetingRecord, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileHeader.Filename), "."))
	if !s.supportedFormat(ext) {
		return nil, fmt.Errorf("%w: .%s (支持: %s)", ErrUnsupportedFormat, ext, strings.Join(s.cfg.Pipeline.SupportedAudioFormats, ", "))
	}
	maxBytes := int64(s.cfg.Pipeline.MaxAudioSizeMB) * 1024 * 1024
	if fileHeader.Size > maxBytes {
		return nil, fmt.Errorf("%w: %dMB > %dMB", ErrAudioTooLarge, fileHeader.Size/(1024*1024), s.cfg.Pipeline.MaxAudioSizeMB)
	}
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("audio_duration_seconds 必须为正数: %d", durationSeconds)
	}
	if durationSeconds > s.cfg.Pipeline.MaxAudioDurationSeconds {
		return nil, fmt.Errorf("%w: %ds > %ds", workflow.ErrAudioTooLong, durationSeconds, s.cfg.Pipeline.MaxAudioDurationSeconds)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}

	m := s.newRecord(model.InputAudio, templateID)
	m.AudioDurationSeconds = &durationSeconds

	// 1. 音频先入对象存储
	contentType := fileHeader.Header.Get("Content-Type")
	key, err := s.repo.PutAudio(ctx, m.ID, ext, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("音频上传失败: %w", err)
	}
	m.AudioKey = key

	// 2. 记录落库
	if err := s.repo.Save(ctx, m); err != nil {
		return nil, err
	}

	s.triggerDraft(m.ID)
	return m, nil
}

// Get 查询单条会议记录
func (s *MeetingService) Get(ctx context.Context, id string) (*model.MeetingRecord, error) {
	return s.repo.Get(ctx, id)
}

// List 分页列出会议记录，新的在前
func (s *MeetingService) List(ctx context.Context, req dto.MeetingListReq) (*dto.MeetingListResp, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	var filtered []*model.MeetingRecord
	for _, m := range all {
		if req.Status != "" && string(m.Status) != req.Status {
			continue
		}
		filtered = append(filtered, m)
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}
	start := (req.Page - 1) * req.PageSize
	end := start + req.PageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	list := make([]dto.MeetingSummary, 0, end-start)
	for _, m := range filtered[start:end] {
		list = append(list, dto.ToSummary(m))
	}
	return &dto.MeetingListResp{Total: int64(len(filtered)), List: list}, nil
}

// SubmitFeedback 提交审查反馈，触发后台优化
//
// 状态预检在这里同步完成，非 reviewing 直接返回 StateError (409)；
// 真正的状态转换仍由编排器守护，并发提交只会有一次生效。
func (s *MeetingService) SubmitFeedback(ctx context.Context, meetingID string, req dto.SubmitFeedbackReq) error {
	items := make([]model.FeedbackItem, 0, len(req.Feedbacks))
	now := time.Now().UTC()
	for _, in := range req.Feedbacks {
		items = append(items, model.FeedbackItem{
			ID:           uuid.New().String(),
			CreatedAt:    now,
			FeedbackType: model.FeedbackType(in.FeedbackType),
			Location:     in.Location,
			Comment:      in.Comment,
		})
	}
	if err := workflow.ValidateFeedbacks(items); err != nil {
		return err
	}

	m, err := s.repo.Get(ctx, meetingID)
	if err != nil {
		return err
	}
	if m.Status != model.StatusReviewing {
		return &workflow.StateError{MeetingID: meetingID, Status: m.Status, Op: "submit_feedback"}
	}

	s.triggerOptimize(meetingID, items)
	return nil
}

// Export 导出指定阶段的纪要 (markdown)。stage 为空时导出终稿。
// 草稿在进入 reviewing 后即可导出，终稿需要 completed。
func (s *MeetingService) Export(ctx context.Context, meetingID, stage string) (filename, content string, err error) {
	m, err := s.repo.Get(ctx, meetingID)
	if err != nil {
		return "", "", err
	}

	var st *model.ProcessingStage
	switch stage {
	case "", string(model.StageFinal):
		if m.Status != model.StatusCompleted {
			return "", "", ErrExportNotCompleted
		}
		st = m.Stages.Final
		stage = string(model.StageFinal)
	case string(model.StageDraft):
		st = m.Stages.Draft
	default:
		return "", "", &workflow.ValidationError{Msg: fmt.Sprintf("不支持导出的阶段: %q", stage)}
	}

	if st == nil || st.Status != model.StageCompleted || st.Content == "" {
		return "", "", ErrExportNotCompleted
	}
	filename = fmt.Sprintf("meeting-minutes-%s-%s.md", stage, m.CreatedAt.Format("20060102"))
	return filename, st.Content, nil
}

func (s *MeetingService) newRecord(inputType model.InputType, templateID string) *model.MeetingRecord {
	if templateID == "" {
		templateID = model.DefaultTemplateID
	}
	now := time.Now().UTC()
	return &model.MeetingRecord{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Status:       model.StatusDraft,
		CurrentStage: model.StageDraft,
		InputType:    inputType,
		TemplateID:   templateID,
	}
}

func (s *MeetingService) supportedFormat(ext string) bool {
	for _, f := range s.cfg.Pipeline.SupportedAudioFormats {
		if f == ext {
			return true
		}
	}
	return false
}

// triggerDraft 后台执行制作阶段 (Fire and Forget)
func (s *MeetingService) triggerDraft(meetingID string) {
	go func() {
		// 请求结束外层 ctx 就取消了，这里要用新的背景上下文
		bgCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Pipeline.StageTimeout)
		defer cancel()

		if _, err := s.orch.BeginDraft(bgCtx, meetingID); err != nil {
			log.Printf("❌ 后台制作阶段失败: meeting=%s err=%v", meetingID, err)
		}
	}()
}

// triggerOptimize 后台执行优化阶段
func (s *MeetingService) triggerOptimize(meetingID string, items []model.FeedbackItem) {
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Pipeline.StageTimeout)
		defer cancel()

		if _, err := s.orch.SubmitFeedback(bgCtx, meetingID, items); err != nil {
			log.Printf("❌ 后台优化阶段失败: meeting=%s err=%v", meetingID, err)
		}
	}()
}
