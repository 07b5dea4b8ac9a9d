package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"BedrockMinutes/internal/model"
	"BedrockMinutes/internal/storage"
)

var (
	// ErrNotFound 会议记录不存在
	ErrNotFound = errors.New("会议记录不存在")
	// ErrConcurrentModification 检测到并发写冲突，调用方应重新加载后重试
	ErrConcurrentModification = errors.New("并发冲突：记录已被其他请求修改")
)

// key 前缀常量，避免魔法字符串
const (
	MeetingsPrefix    = "meetings/"
	AudioPrefix       = "audio/"
	TranscriptsPrefix = "transcripts/"
)

const lockTTL = 5 * time.Second

// MeetingRepository 会议记录仓库
//
// 每条记录是对象存储中的一个 JSON 文档。写入走乐观并发控制:
// 记录携带 version 计数器，Save 在 Redis 互斥锁内比对存储中的版本，
// 不一致则返回 ErrConcurrentModification，绝不静默覆盖。
type MeetingRepository struct {
	store storage.ObjectStore
	locks Locker
}

func NewMeetingRepository(store storage.ObjectStore, locks Locker) *MeetingRepository {
	return &MeetingRepository{store: store, locks: locks}
}

func meetingKey(id string) string {
	return MeetingsPrefix + id + ".json"
}

// Get 加载会议记录
func (r *MeetingRepository) Get(ctx context.Context, id string) (*model.MeetingRecord, error) {
	data, err := r.store.Get(ctx, meetingKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var m model.MeetingRecord
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("解析会议记录失败: %w", err)
	}
	return &m, nil
}

// Save 保存会议记录 (乐观锁)
//
// 传入记录的 Version 必须等于存储中的当前版本 (新记录为 0)；
// 校验通过后版本号 +1 并回写到传入的记录上。
func (r *MeetingRepository) Save(ctx context.Context, m *model.MeetingRecord) error {
	release, err := r.locks.Lock(ctx, "lock:meeting:"+m.ID, lockTTL)
	if err != nil {
		return err
	}
	defer release()

	// 1. 读取存储中的当前版本
	var storedVersion int64
	current, err := r.Get(ctx, m.ID)
	switch {
	case err == nil:
		storedVersion = current.Version
	case errors.Is(err, ErrNotFound):
		storedVersion = 0
	default:
		return err
	}

	// 2. 版本比对，过期写入直接拒绝
	if m.Version != storedVersion {
		return fmt.Errorf("%w (本地 v%d, 存储 v%d)", ErrConcurrentModification, m.Version, storedVersion)
	}

	// 3. 递增版本并写入
	m.Version++
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		m.Version--
		return err
	}
	if err := r.store.Put(ctx, meetingKey(m.ID), data, "application/json"); err != nil {
		m.Version--
		return err
	}
	return nil
}

// List 列出所有会议记录，按创建时间降序
func (r *MeetingRepository) List(ctx context.Context) ([]*model.MeetingRecord, error) {
	keys, err := r.store.List(ctx, MeetingsPrefix)
	if err != nil {
		return nil, err
	}

	var meetings []*model.MeetingRecord
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		data, err := r.store.Get(ctx, key)
		if err != nil {
			continue
		}
		var m model.MeetingRecord
		if err := json.Unmarshal(data, &m); err != nil {
			// 记录损坏的文件但不中断整个列表
			log.Printf("⚠️ 无法解析会议记录 %s: %v", key, err)
			continue
		}
		meetings = append(meetings, &m)
	}

	sort.Slice(meetings, func(i, j int) bool {
		return meetings[i].CreatedAt.After(meetings[j].CreatedAt)
	})
	return meetings, nil
}

// PutAudio 保存原始音频，返回存储 key。ext 不带点，如 "mp3"。
func (r *MeetingRepository) PutAudio(ctx context.Context, meetingID, ext string, data []byte, contentType string) (string, error) {
	key := AudioPrefix + meetingID + "." + ext
	if err := r.store.Put(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("音频上传失败: %w", err)
	}
	return key, nil
}
