package database

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-dualstore/internal/core/cache"
	"go-gin-dualstore/internal/core/config"
)

// Stores 进程内唯一的一组连接：启动时打开一次，退出时关闭一次
type Stores struct {
	SQL   *gorm.DB
	Mongo *mongo.Client
	Users *mongo.Collection
	// Cache 未配置 redis 时为 nil
	Cache *cache.Cache

	closeOnce sync.Once
	closeErr  error
}

// Open 任一后端不可用即失败，并释放已打开的连接
func Open(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Stores, error) {
	s := &Stores{}

	db, err := NewGorm(Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	}, l)
	if err != nil {
		return nil, err
	}
	s.SQL = db
	l.Info("relational store connected", zap.String("driver", cfg.DB.Driver))

	client, err := NewMongo(ctx, MongoOpts{URI: cfg.Mongo.URI, Timeout: cfg.Mongo.Timeout()})
	if err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	s.Mongo = client
	s.Users = client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
	l.Info("document store connected", zap.String("database", cfg.Mongo.Database))

	if cfg.Redis.Enabled() {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := c.Ping(ctx); err != nil {
			// 缓存不可用不影响启动
			l.Warn("redis unavailable, cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = c.Close()
		} else {
			s.Cache = c
			l.Info("redis cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}
	return s, nil
}

// Close 可重复调用，只有第一次真正关闭
func (s *Stores) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.Cache != nil {
			errs = append(errs, s.Cache.Close())
		}
		if s.Mongo != nil {
			errs = append(errs, s.Mongo.Disconnect(ctx))
		}
		if s.SQL != nil {
			if sqlDB, err := s.SQL.DB(); err == nil {
				errs = append(errs, sqlDB.Close())
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
