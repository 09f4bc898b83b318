package redisstate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"collaborative-canvas/internal/repository"
)

// 每次 HSCAN 建议返回的条数
const scanCount = 200

// RedisRoomStore 是 RoomStore 接口的 Redis 实现。
// 每个房间对应一个 Hash，field 为存储 key，value 为原始字节。
type RedisRoomStore struct {
	client    *redis.Client
	keyPrefix string
}

var _ repository.RoomStore = (*RedisRoomStore)(nil)

// NewRedisRoomStore 创建 RedisRoomStore 实例
func NewRedisRoomStore(client *redis.Client, keyPrefix string) *RedisRoomStore {
	if client == nil {
		panic("redis client cannot be nil for RedisRoomStore")
	}
	if keyPrefix == "" {
		keyPrefix = "cr:"
	}
	return &RedisRoomStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *RedisRoomStore) roomKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:kv", r.keyPrefix, roomID)
}

// Get 读取单个 field
func (r *RedisRoomStore) Get(ctx context.Context, roomID, key string) ([]byte, error) {
	hashKey := r.roomKey(roomID)
	value, err := r.client.HGet(ctx, hashKey, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis: failed to get %s from %s: %w", key, hashKey, err)
	}
	return value, nil
}

// Put 写入单个 field
func (r *RedisRoomStore) Put(ctx context.Context, roomID, key string, value []byte) error {
	hashKey := r.roomKey(roomID)
	if err := r.client.HSet(ctx, hashKey, key, value).Err(); err != nil {
		return fmt.Errorf("redis: failed to put %s into %s: %w", key, hashKey, err)
	}
	return nil
}

// Delete 删除单个 field
func (r *RedisRoomStore) Delete(ctx context.Context, roomID, key string) error {
	hashKey := r.roomKey(roomID)
	if err := r.client.HDel(ctx, hashKey, key).Err(); err != nil {
		return fmt.Errorf("redis: failed to delete %s from %s: %w", key, hashKey, err)
	}
	return nil
}

// DeletePrefix 先 HSCAN 找出匹配的 field，再批量 HDEL
func (r *RedisRoomStore) DeletePrefix(ctx context.Context, roomID, prefix string) error {
	hashKey := r.roomKey(roomID)
	pairs, err := r.scan(ctx, hashKey, prefix)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return nil
	}
	fields := make([]string, 0, len(pairs))
	for field := range pairs {
		fields = append(fields, field)
	}
	if err := r.client.HDel(ctx, hashKey, fields...).Err(); err != nil {
		return fmt.Errorf("redis: failed to delete prefix %s from %s: %w", prefix, hashKey, err)
	}
	logrus.WithFields(logrus.Fields{
		"room_id": roomID,
		"prefix":  prefix,
		"count":   len(fields),
	}).Debug("redis: deleted fields by prefix")
	return nil
}

// List 返回匹配 prefix 的所有 value，按 field 排序
func (r *RedisRoomStore) List(ctx context.Context, roomID, prefix string) ([][]byte, error) {
	pairs, err := r.scan(ctx, r.roomKey(roomID), prefix)
	if err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(pairs))
	for field := range pairs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	values := make([][]byte, 0, len(fields))
	for _, field := range fields {
		values = append(values, []byte(pairs[field]))
	}
	return values, nil
}

// DeleteAll 直接删除整个 Hash
func (r *RedisRoomStore) DeleteAll(ctx context.Context, roomID string) error {
	hashKey := r.roomKey(roomID)
	if err := r.client.Del(ctx, hashKey).Err(); err != nil {
		return fmt.Errorf("redis: failed to delete %s: %w", hashKey, err)
	}
	return nil
}

// scan 遍历 Hash，返回 field -> value。HSCAN 可能返回重复的 field，用 map 去重。
func (r *RedisRoomStore) scan(ctx context.Context, hashKey, prefix string) (map[string]string, error) {
	match := escapeGlob(prefix) + "*"
	pairs := make(map[string]string)
	var cursor uint64
	for {
		kvs, next, err := r.client.HScan(ctx, hashKey, cursor, match, scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: failed to scan %s with %s: %w", hashKey, match, err)
		}
		for i := 0; i+1 < len(kvs); i += 2 {
			pairs[kvs[i]] = kvs[i+1]
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return pairs, nil
}

// escapeGlob 转义 Redis MATCH 模式中的特殊字符
func escapeGlob(s string) string {
	var b strings.Builder
	for _, ch := range s {
		switch ch {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(ch)
	}
	return b.String()
}
