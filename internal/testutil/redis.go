// Package testutil 提供集成测试用的 Redis 容器。
//
// 容器在测试结束时自动清理；使用 -short 或本机没有可用的 Docker 时跳过。
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	tc "github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisEnv 一个独立的 Redis 容器和连到它的客户端
type RedisEnv struct {
	Addr      string
	Client    *redis.Client
	container tc.Container
}

// StartRedis 启动 Redis 容器
func StartRedis(t *testing.T) *RedisEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	tc.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	env := &RedisEnv{container: container}
	t.Cleanup(func() {
		if env.Client != nil {
			_ = env.Client.Close()
		}
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}
	env.Addr = endpoint
	env.Client = redis.NewClient(&redis.Options{
		Addr:         endpoint,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := env.Client.Ping(pingCtx).Err(); err != nil {
		t.Fatalf("failed to ping redis: %v", err)
	}
	return env
}

// Flush 清空当前 DB
func (e *RedisEnv) Flush(t testing.TB) {
	t.Helper()
	if err := e.Client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("failed to flush redis: %v", err)
	}
}
