package ai

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func TestRunRetriesTransientErrors(t *testing.T) {
	calls := 0
	attempts, err := fastPolicy().run(context.Background(), "test", func() error {
		calls++
		if calls < 3 {
			return &RetryableError{Err: errors.New("throttled")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if attempts != 3 || calls != 3 {
		t.Fatalf("attempts=%d calls=%d, want 3/3", attempts, calls)
	}
}

func TestRunStopsAtMaxAttempts(t *testing.T) {
	calls := 0
	transient := &RetryableError{Err: errors.New("timeout")}
	attempts, err := fastPolicy().run(context.Background(), "test", func() error {
		calls++
		return transient
	})
	if calls != 3 {
		t.Fatalf("calls=%d, want exactly 3", calls)
	}
	if attempts != 3 {
		t.Fatalf("attempts=%d, want 3", attempts)
	}
	var re *RetryableError
	if !errors.As(err, &re) {
		t.Fatalf("expected last transient error, got %v", err)
	}
}

func TestRunFatalErrorNotRetried(t *testing.T) {
	calls := 0
	fatal := errors.New("validation exception")
	attempts, err := fastPolicy().run(context.Background(), "test", func() error {
		calls++
		return fatal
	})
	if calls != 1 || attempts != 1 {
		t.Fatalf("calls=%d attempts=%d, want 1/1", calls, attempts)
	}
	if !errors.Is(err, fatal) {
		t.Fatalf("err=%v, want fatal error", err)
	}
}

func TestRunSectionValidationIsRetryable(t *testing.T) {
	calls := 0
	_, err := fastPolicy().run(context.Background(), "test", func() error {
		calls++
		if calls == 1 {
			return &SectionValidationError{Missing: []string{"会议主题"}}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls=%d, want retry after section validation failure", calls)
	}
}

func TestRunHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour}.run(ctx, "test", func() error {
		calls++
		cancel() // 第一次失败后进入退避等待，等待应立即被取消打断
		return &RetryableError{Err: errors.New("throttled")}
	})
	if calls != 1 {
		t.Fatalf("calls=%d, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}
