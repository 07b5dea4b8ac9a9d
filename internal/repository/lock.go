package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker 按 key 互斥，用于把仓库的"检查版本再写入"变成原子操作
type Locker interface {
	// Lock 获取锁，返回释放函数。拿不到锁时轮询等待，直到 ctx 超时。
	Lock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RedisLocker 基于 Redis SET NX 的分布式互斥锁
type RedisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	// 每次加锁带上随机 token，释放时校验，防止误删别人的锁
	token := uuid.New().String()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("获取锁失败: %w", err)
		}
		if ok {
			release := func() {
				// 只释放自己持有的锁
				const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
				_ = l.rdb.Eval(context.Background(), script, []string{key}, token).Err()
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
