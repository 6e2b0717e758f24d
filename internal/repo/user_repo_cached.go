package repo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"go-gin-dualstore/internal/core/cache"
	"go-gin-dualstore/internal/domain"
)

// CachedUserStore 读穿透缓存：Get 走 redis（回填只用 SETNX），
// Update 成功后写入新值，Delete 成功后留墓碑，与回源并发的旧值都写不进去
type CachedUserStore struct {
	inner domain.UserStore
	cache *cache.Cache
	tag   string
	ttl   time.Duration
	log   *zap.Logger
}

var _ domain.UserStore = (*CachedUserStore)(nil)

func NewCachedUserStore(inner domain.UserStore, c *cache.Cache, tag string, ttl time.Duration, l *zap.Logger) *CachedUserStore {
	return &CachedUserStore{inner: inner, cache: c, tag: tag, ttl: ttl, log: l}
}

func (s *CachedUserStore) key(id string) string { return "users:" + s.tag + ":" + id }

func (s *CachedUserStore) List(ctx context.Context) ([]domain.User, error) {
	return s.inner.List(ctx)
}

func (s *CachedUserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := cache.GetOrLoadJSON[domain.User](s.cache, ctx, s.key(id), s.ttl, func(ctx context.Context) (*domain.User, error) {
		return s.inner.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return s.inner.Get(ctx, id)
	}
	// 非规范写法的 id（如 "007"）不留缓存，避免更新后读到旧值
	if canon := u.ID.String(); canon != id {
		s.evict(ctx, id)
	}
	return u, nil
}

func (s *CachedUserStore) Create(ctx context.Context, in domain.UserInput) (*domain.User, error) {
	return s.inner.Create(ctx, in)
}

func (s *CachedUserStore) Update(ctx context.Context, id string, in domain.UserInput) (*domain.User, error) {
	u, err := s.inner.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	key := s.key(u.ID.String())
	if err := cache.SetJSON(s.cache, ctx, key, s.ttl, u); err != nil {
		s.log.Warn("cache write-through failed", zap.String("backend", s.tag), zap.String("id", u.ID.String()), zap.Error(err))
		s.evict(ctx, u.ID.String())
	}
	return u, nil
}

func (s *CachedUserStore) Delete(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.inner.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, s.key(u.ID.String()), cache.Tombstone, s.ttl); err != nil {
		s.log.Warn("cache tombstone failed", zap.String("backend", s.tag), zap.String("id", u.ID.String()), zap.Error(err))
		s.evict(ctx, u.ID.String())
	}
	return u, nil
}

func (s *CachedUserStore) evict(ctx context.Context, id string) {
	if err := s.cache.Del(ctx, s.key(id)); err != nil {
		s.log.Warn("cache evict failed", zap.String("backend", s.tag), zap.String("id", id), zap.Error(err))
	}
}
