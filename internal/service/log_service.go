package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"BedrockMinutes/internal/data"
	"BedrockMinutes/internal/dto"
	"BedrockMinutes/internal/model"
)

type LogService struct {
	Data *data.Data
}

func NewLogService(data *data.Data) *LogService {
	return &LogService{Data: data}
}

// Record 写入一条阶段运行日志。
// 编排器在后台调用，写失败只记日志，不影响工作流本身。
func (s *LogService) Record(ctx context.Context, entry *model.StageRunLog) {
	if entry.TraceID == "" {
		entry.TraceID = uuid.New().String()
	}
	if err := s.Data.DB.WithContext(ctx).Create(entry).Error; err != nil {
		log.Printf("⚠️ 运行日志写入失败: meeting=%s stage=%s err=%v", entry.MeetingID, entry.Stage, err)
	}
}

// GetLogList 获取运行日志列表 (支持分页和筛选)
func (s *LogService) GetLogList(ctx context.Context, req dto.LogListReq) (*dto.LogListResp, error) {
	var logs []model.StageRunLog
	var total int64

	db := s.Data.DB.WithContext(ctx).Model(&model.StageRunLog{})

	if req.MeetingID != "" {
		db = db.Where("meeting_id = ?", req.MeetingID)
	}
	if req.Stage != "" {
		db = db.Where("stage = ?", req.Stage)
	}
	if req.Status != "" {
		db = db.Where("status = ?", req.Status)
	}

	// 计算总数
	db.Count(&total)

	// 分页查询
	offset := (req.Page - 1) * req.PageSize
	if err := db.Order("created_at desc").Limit(req.PageSize).Offset(offset).Find(&logs).Error; err != nil {
		return nil, err
	}

	var list []dto.LogSummary
	for _, l := range logs {
		list = append(list, dto.LogSummary{
			ID:          l.ID,
			TraceID:     l.TraceID,
			MeetingID:   l.MeetingID,
			Stage:       l.Stage,
			Model:       l.Model,
			TotalTokens: l.TotalTokens,
			DurationMs:  l.DurationMs,
			Status:      l.Status,
			ErrorMsg:    l.ErrorMsg,
			CreatedAt:   l.CreatedAt,
		})
	}

	return &dto.LogListResp{Total: total, List: list}, nil
}

// GetStats 获取运行统计数据 (图表用)
func (s *LogService) GetStats(ctx context.Context, req dto.StatsReq) (*dto.StatsResp, error) {
	if req.Days <= 0 {
		req.Days = 7
	}
	startTime := time.Now().AddDate(0, 0, -req.Days)

	// 1. 总体统计
	var totals struct {
		SumTokens   int64
		CountRuns   int64
		SumDuration int64
	}
	db := s.Data.DB.WithContext(ctx).Model(&model.StageRunLog{}).Where("created_at >= ?", startTime)
	err := db.Select("sum(total_tokens) as sum_tokens, count(id) as count_runs, sum(duration_ms) as sum_duration").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}

	avgDuration := int64(0)
	if totals.CountRuns > 0 {
		avgDuration = totals.SumDuration / totals.CountRuns
	}

	var failed int64
	s.Data.DB.WithContext(ctx).Model(&model.StageRunLog{}).
		Where("created_at >= ? AND status = ?", startTime, "failed").
		Count(&failed)

	// 2. 每日趋势 (Postgres TO_CHAR 聚合)
	type dailyRow struct {
		Date        string
		TotalTokens int64
		RunCount    int64
	}
	var rows []dailyRow
	err = db.Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, sum(total_tokens) as total_tokens, count(id) as run_count").
		Group("date").
		Order("date").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	daily := make([]dto.DailyMetric, 0, len(rows))
	for _, r := range rows {
		daily = append(daily, dto.DailyMetric{Date: r.Date, Tokens: r.TotalTokens, Runs: r.RunCount})
	}

	return &dto.StatsResp{
		TotalRuns:     totals.CountRuns,
		TotalTokens:   totals.SumTokens,
		AvgDurationMs: avgDuration,
		FailedRuns:    failed,
		DailyStats:    daily,
	}, nil
}
