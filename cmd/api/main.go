package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go-gin-dualstore/internal/core/config"
	"go-gin-dualstore/internal/core/database"
	"go-gin-dualstore/internal/core/logger"
	"go-gin-dualstore/internal/core/server"
	"go-gin-dualstore/internal/domain"
	"go-gin-dualstore/internal/repo"
	"go-gin-dualstore/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, cleanup := newLogger(cfg)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	if cfg.App.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = logger.ToWriter(log.Named("gin"), zapcore.DebugLevel)

	ctx := context.Background()
	stores, err := database.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("open stores", zap.Error(err))
	}

	pg := repo.NewUserRepo(stores.SQL)
	mg := repo.NewUserMongoRepo(stores.Users)
	if cfg.DB.AutoMigrate {
		if err := pg.AutoMigrate(); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		if err := mg.EnsureIndexes(ctx); err != nil {
			log.Fatal("ensure mongo indexes failed", zap.Error(err))
		}
		log.Info("schema ready")
	}

	backends := router.NewBackends()
	backends.Register(router.BackendMongo, withCache(stores, router.BackendMongo, mg, cfg, log))
	backends.Register(router.BackendPostgres, withCache(stores, router.BackendPostgres, pg, cfg, log))

	r := router.NewAPIEngine(log, backends, routerOptions(cfg))

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(addr, r, server.Timeouts{
		Read:  time.Duration(cfg.App.HTTP.ReadTimeoutSec) * time.Second,
		Write: time.Duration(cfg.App.HTTP.WriteTimeoutSec) * time.Second,
		Idle:  time.Duration(cfg.App.HTTP.IdleTimeoutSec) * time.Second,
	})

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + server.Addr(host4human, cfg.App.HTTP.Port)
	log.Info("users api starting",
		zap.String("health", baseURL+"/health"),
		zap.String("mongo", baseURL+"/api/users/"+router.BackendMongo),
		zap.String("postgres", baseURL+"/api/users/"+router.BackendPostgres),
	)

	// SIGINT/SIGTERM 后先停 HTTP，再关连接
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := server.Serve(sigCtx, srv, log, 10*time.Second, stores.Close); err != nil {
		log.Error("users api stopped with error", zap.Error(err))
		return
	}
	log.Info("users api stopped gracefully")
}

func newLogger(cfg *config.Config) (*zap.Logger, func()) {
	f := cfg.Log.File
	if !f.Enable {
		return logger.New(cfg.Log.Level, cfg.Log.JSON)
	}
	return logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON, logger.FileRotate{
		Filename:   f.Filename,
		MaxSizeMB:  f.MaxSizeMB,
		MaxBackups: f.MaxBackups,
		MaxAgeDays: f.MaxAgeDays,
		Compress:   f.Compress,
	})
}

func withCache(s *database.Stores, tag string, store domain.UserStore, cfg *config.Config, l *zap.Logger) domain.UserStore {
	if s.Cache == nil {
		return store
	}
	return repo.NewCachedUserStore(store, s.Cache, tag, cfg.Redis.TTL(), l)
}

func routerOptions(cfg *config.Config) router.Options {
	lim := cfg.App.Limits
	return router.Options{
		RPS:            lim.RPS,
		Burst:          lim.Burst,
		PerIPRPS:       lim.PerIPRPS,
		PerIPBurst:     lim.PerIPBurst,
		MaxConcurrent:  lim.MaxConcurrent,
		QueueWait:      time.Duration(lim.QueueWaitMs) * time.Millisecond,
		MaxBodyBytes:   lim.MaxBodyBytes,
		RequestTimeout: time.Duration(lim.RequestTimeoutSec) * time.Second,
		AllowOrigins:   cfg.App.CORS.AllowOrigins,
	}
}
