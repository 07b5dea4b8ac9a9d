package ai

import (
	"context"
	"log"
	"math/rand"
	"time"
)

// RetryPolicy AI 调用的重试策略。仅用于推理服务调用，存储操作不走这里。
type RetryPolicy struct {
	MaxAttempts int           // 尝试总次数上限 (含首次)
	BaseDelay   time.Duration // 首次重试前的基准等待
}

// DefaultRetryPolicy 与线上一致的默认策略: 3 次尝试，2s 起步指数退避
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second}
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 2 * time.Second
	}
	return p
}

// run 执行 fn，瞬时错误与软校验失败按指数退避重试，致命错误立即返回。
// 返回实际尝试次数与最后一次的错误。
func (p RetryPolicy) run(ctx context.Context, op string, fn func() error) (int, error) {
	p = p.normalize()

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			// 指数退避 + 抖动 (0.5x ~ 1.5x)，避免对推理服务造成重试风暴
			delay := p.BaseDelay << (attempt - 1)
			jittered := delay/2 + time.Duration(rand.Int63n(int64(delay)))
			log.Printf("⚠️ %s 第 %d/%d 次尝试失败: %v，%s 后重试...", op, attempt, p.MaxAttempts, lastErr, jittered)

			select {
			case <-ctx.Done():
				return attempt, ctx.Err()
			case <-time.After(jittered):
			}
		}

		err := fn()
		if err == nil {
			if attempt > 0 {
				log.Printf("✅ %s 在第 %d 次尝试成功", op, attempt+1)
			}
			return attempt + 1, nil
		}
		lastErr = err

		if !retryable(err) {
			// 致命错误 (如 prompt 构造问题) 不重试
			return attempt + 1, err
		}
	}
	return p.MaxAttempts, lastErr
}
