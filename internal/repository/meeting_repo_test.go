package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"BedrockMinutes/internal/model"
	"BedrockMinutes/internal/storage"
)

// memStore 内存版对象存储，测试用
type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (s *memStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.objects[key] = data
	return nil
}

func (s *memStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// noopLocker 单测里不需要真正的互斥
type noopLocker struct{}

func (noopLocker) Lock(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}

func newTestRepo() (*MeetingRepository, *memStore) {
	store := newMemStore()
	return NewMeetingRepository(store, noopLocker{}), store
}

func newRecord(id string, createdAt time.Time) *model.MeetingRecord {
	return &model.MeetingRecord{
		ID:           id,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
		Status:       model.StatusDraft,
		CurrentStage: model.StageDraft,
		InputType:    model.InputText,
		OriginalText: "会议内容",
		TemplateID:   model.DefaultTemplateID,
	}
}

func TestSaveAndGetRoundtrip(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	m := newRecord("m-1", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	if err := repo.Save(ctx, m); err != nil {
		t.Fatalf("save: %v", err)
	}
	if m.Version != 1 {
		t.Fatalf("version = %d, want 1 after first save", m.Version)
	}

	got, err := repo.Get(ctx, "m-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != m.ID || got.OriginalText != m.OriginalText || got.Version != 1 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestGetNotFound(t *testing.T) {
	repo, _ := newTestRepo()
	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveDetectsConcurrentModification(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	m := newRecord("m-1", time.Now().UTC())
	if err := repo.Save(ctx, m); err != nil {
		t.Fatalf("save: %v", err)
	}

	// 两个调用方各自加载同一版本
	a, _ := repo.Get(ctx, "m-1")
	b, _ := repo.Get(ctx, "m-1")

	a.Status = model.StatusProcessing
	if err := repo.Save(ctx, a); err != nil {
		t.Fatalf("first writer: %v", err)
	}

	b.Status = model.StatusFailed
	err := repo.Save(ctx, b)
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("err = %v, want ErrConcurrentModification", err)
	}

	// 存储内容是第一个写入方的
	got, _ := repo.Get(ctx, "m-1")
	if got.Status != model.StatusProcessing {
		t.Fatalf("status = %s, stale write must not win", got.Status)
	}
}

func TestSaveStaleVersionAfterReload(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	m := newRecord("m-1", time.Now().UTC())
	_ = repo.Save(ctx, m)

	stale, _ := repo.Get(ctx, "m-1")
	_ = repo.Save(ctx, stale) // v2

	// 冲突后重新加载即可继续写
	fresh, _ := repo.Get(ctx, "m-1")
	fresh.Status = model.StatusProcessing
	if err := repo.Save(ctx, fresh); err != nil {
		t.Fatalf("save after reload: %v", err)
	}
	if fresh.Version != 3 {
		t.Fatalf("version = %d, want 3", fresh.Version)
	}
}

func TestListNewestFirstAndSkipsCorrupt(t *testing.T) {
	repo, store := newTestRepo()
	ctx := context.Background()

	old := newRecord("m-old", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	mid := newRecord("m-mid", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	newer := newRecord("m-new", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	for _, m := range []*model.MeetingRecord{old, mid, newer} {
		if err := repo.Save(ctx, m); err != nil {
			t.Fatalf("save %s: %v", m.ID, err)
		}
	}
	// 损坏的对象不应中断整个列表
	store.objects["meetings/broken.json"] = []byte("{not json")

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	wantOrder := []string{"m-new", "m-mid", "m-old"}
	for i, id := range wantOrder {
		if list[i].ID != id {
			t.Fatalf("order = [%s %s %s], want %v", list[0].ID, list[1].ID, list[2].ID, wantOrder)
		}
	}
}

func TestPutAudioKey(t *testing.T) {
	repo, store := newTestRepo()
	key, err := repo.PutAudio(context.Background(), "m-1", "mp3", []byte{0xFF, 0xFB}, "audio/mpeg")
	if err != nil {
		t.Fatalf("put audio: %v", err)
	}
	if key != "audio/m-1.mp3" {
		t.Fatalf("key = %q, want audio/m-1.mp3", key)
	}
	if _, ok := store.objects[key]; !ok {
		t.Fatal("audio object not stored")
	}
}
