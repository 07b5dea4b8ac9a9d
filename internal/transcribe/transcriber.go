package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/google/uuid"

	"BedrockMinutes/internal/storage"
)

// TranscriptionError 转录作业失败或超时，携带外部作业 ID 便于排查
type TranscriptionError struct {
	JobID string
	Err   error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("转录失败 (job=%s): %v", e.JobID, e.Err)
}
func (e *TranscriptionError) Unwrap() error { return e.Err }

// api AWS Transcribe SDK 子集，便于测试替换
type api interface {
	StartTranscriptionJob(ctx context.Context, params *awstranscribe.StartTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, params *awstranscribe.GetTranscriptionJobInput, optFns ...func(*awstranscribe.Options)) (*awstranscribe.GetTranscriptionJobOutput, error)
}

// Config 转录适配器配置
type Config struct {
	Bucket       string        // 音频与转录结果所在的 S3 桶
	OutputPrefix string        // 转录结果前缀，默认 "transcripts/"
	PollInterval time.Duration // 轮询间隔
	MaxWait      time.Duration // 最长等待 (默认 2 小时)
	MaxSpeakers  int32         // 说话人识别上限
}

// Adapter 把异步的语音转文字作业封装为一次可等待的调用:
// 提交作业 → 固定间隔轮询 → 取回转录文本。
type Adapter struct {
	api   api
	store storage.ObjectStore
	cfg   Config
}

func NewAdapter(client *awstranscribe.Client, store storage.ObjectStore, cfg Config) *Adapter {
	return newAdapter(client, store, cfg)
}

func newAdapter(a api, store storage.ObjectStore, cfg Config) *Adapter {
	if cfg.OutputPrefix == "" {
		cfg.OutputPrefix = "transcripts/"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 2 * time.Hour
	}
	if cfg.MaxSpeakers <= 0 {
		cfg.MaxSpeakers = 10
	}
	return &Adapter{api: a, store: store, cfg: cfg}
}

// jobName 生成唯一的转录作业名称
func jobName() string {
	ts := time.Now().Format("20060102150405")
	return fmt.Sprintf("meeting-transcription-%s-%s", ts, uuid.New().String()[:8])
}

// Transcribe 转录一段音频，阻塞直到作业完成、失败或超时。
// 重复调用是安全的: 每次都会提交一个全新的作业。
func (a *Adapter) Transcribe(ctx context.Context, audioKey, language string) (string, error) {
	name := jobName()
	outputKey := a.cfg.OutputPrefix + name + ".json"

	// 1. 提交异步作业 (开启说话人识别)
	_, err := a.api.StartTranscriptionJob(ctx, &awstranscribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(name),
		LanguageCode:         types.LanguageCode(language),
		Media: &types.Media{
			MediaFileUri: aws.String(fmt.Sprintf("s3://%s/%s", a.cfg.Bucket, audioKey)),
		},
		OutputBucketName: aws.String(a.cfg.Bucket),
		OutputKey:        aws.String(outputKey),
		Settings: &types.Settings{
			ShowSpeakerLabels: aws.Bool(true),
			MaxSpeakerLabels:  aws.Int32(a.cfg.MaxSpeakers),
		},
	})
	if err != nil {
		return "", &TranscriptionError{JobID: name, Err: fmt.Errorf("提交作业失败: %w", err)}
	}
	log.Printf("🚀 转录作业已提交: %s (audio=%s)", name, audioKey)

	// 2. 轮询作业状态
	deadline := time.Now().Add(a.cfg.MaxWait)
	for {
		if time.Now().After(deadline) {
			return "", &TranscriptionError{JobID: name, Err: fmt.Errorf("等待超过 %s 仍未完成", a.cfg.MaxWait)}
		}

		out, err := a.api.GetTranscriptionJob(ctx, &awstranscribe.GetTranscriptionJobInput{
			TranscriptionJobName: aws.String(name),
		})
		if err != nil {
			return "", &TranscriptionError{JobID: name, Err: fmt.Errorf("查询作业状态失败: %w", err)}
		}

		job := out.TranscriptionJob
		switch job.TranscriptionJobStatus {
		case types.TranscriptionJobStatusCompleted:
			log.Printf("✅ 转录作业完成: %s", name)
			return a.fetchTranscript(ctx, name, outputKey)

		case types.TranscriptionJobStatusFailed:
			reason := "unknown"
			if job.FailureReason != nil {
				reason = *job.FailureReason
			}
			return "", &TranscriptionError{JobID: name, Err: fmt.Errorf("作业失败: %s", reason)}
		}

		// QUEUED / IN_PROGRESS: 继续等待
		select {
		case <-ctx.Done():
			return "", &TranscriptionError{JobID: name, Err: ctx.Err()}
		case <-time.After(a.cfg.PollInterval):
		}
	}
}

// --- 转录结果 JSON (Transcribe 输出格式) ---

type transcriptDocument struct {
	Results transcriptResults `json:"results"`
}

type transcriptResults struct {
	Transcripts []struct {
		Transcript string `json:"transcript"`
	} `json:"transcripts"`
	SpeakerLabels *struct {
		Segments []speakerSegment `json:"segments"`
	} `json:"speaker_labels"`
}

type speakerSegment struct {
	SpeakerLabel string `json:"speaker_label"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Items        []struct {
		Alternatives []struct {
			Content string `json:"content"`
		} `json:"alternatives"`
	} `json:"items"`
}

// fetchTranscript 从对象存储取回转录结果并格式化
func (a *Adapter) fetchTranscript(ctx context.Context, job, key string) (string, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return "", &TranscriptionError{JobID: job, Err: fmt.Errorf("读取转录结果失败: %w", err)}
	}

	var doc transcriptDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", &TranscriptionError{JobID: job, Err: fmt.Errorf("解析转录结果失败: %w", err)}
	}

	text := formatTranscript(doc.Results)
	if text == "" {
		return "", &TranscriptionError{JobID: job, Err: fmt.Errorf("转录结果为空")}
	}
	return text, nil
}

// formatTranscript 优先输出带说话人标记的文本:
// [spk_0 - 1.2s-4.5s] 内容；没有说话人分离结果时退回纯文本。
func formatTranscript(results transcriptResults) string {
	if results.SpeakerLabels != nil {
		var lines []string
		for _, seg := range results.SpeakerLabels.Segments {
			var words []string
			for _, item := range seg.Items {
				if len(item.Alternatives) > 0 && item.Alternatives[0].Content != "" {
					words = append(words, item.Alternatives[0].Content)
				}
			}
			if len(words) == 0 {
				continue
			}
			start, _ := strconv.ParseFloat(seg.StartTime, 64)
			end, _ := strconv.ParseFloat(seg.EndTime, 64)
			lines = append(lines, fmt.Sprintf("[%s - %.1fs-%.1fs] %s",
				seg.SpeakerLabel, start, end, strings.Join(words, " ")))
		}
		if len(lines) > 0 {
			return strings.Join(lines, "\n")
		}
	}

	if len(results.Transcripts) > 0 {
		return results.Transcripts[0].Transcript
	}
	return ""
}
