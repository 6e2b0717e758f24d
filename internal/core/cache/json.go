package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

// GetOrLoadJSON GetOrLoad 的类型化版本。
// 错误和 nil 结果都不缓存；读到 Tombstone 返回 nil；
// 缓存内容无法解码时删掉该 key 并直接回源
func GetOrLoadJSON[T any](
	c *Cache,
	ctx context.Context,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (*T, error),
) (*T, error) {
	b, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, e := load(ctx)
		if e != nil || v == nil {
			return nil, e
		}
		return json.Marshal(v)
	})
	if err != nil {
		return nil, err
	}
	if b == nil || bytes.Equal(b, Tombstone) {
		return nil, nil
	}
	var out T
	if json.Unmarshal(b, &out) != nil {
		_ = c.Del(ctx, key)
		return load(ctx)
	}
	return &out, nil
}

// SetJSON 写穿透：把最新值直接写进缓存
func SetJSON[T any](c *Cache, ctx context.Context, key string, ttl time.Duration, v *T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, b, ttl)
}
