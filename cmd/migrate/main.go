package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-dualstore/internal/core/config"
	"go-gin-dualstore/internal/core/database"
	"go-gin-dualstore/internal/core/logger"
	"go-gin-dualstore/internal/repo"
)

// 一次性建表/建索引，适合在部署流水线里先于 api 运行
func main() {
	_ = godotenv.Load()
	// os.Exit 不执行 defer，所有清理都放在 run 里
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	stores, err := database.Open(ctx, cfg, log)
	if err != nil {
		log.Error("open stores", zap.Error(err))
		return fmt.Errorf("open stores: %w", err)
	}
	defer func() {
		if err := stores.Close(context.Background()); err != nil {
			log.Warn("close stores", zap.Error(err))
		}
	}()

	return migrate(ctx, log, stores.SQL, stores.Users)
}

func migrate(ctx context.Context, log *zap.Logger, db *gorm.DB, users *mongo.Collection) error {
	if err := repo.NewUserRepo(db).AutoMigrate(); err != nil {
		log.Error("automigrate users table", zap.Error(err))
		return fmt.Errorf("automigrate users table: %w", err)
	}
	log.Info("users table ready", zap.String("dialect", db.Dialector.Name()))

	if err := repo.NewUserMongoRepo(users).EnsureIndexes(ctx); err != nil {
		log.Error("ensure mongo indexes", zap.Error(err))
		return fmt.Errorf("ensure mongo indexes: %w", err)
	}
	log.Info("users collection indexes ready", zap.String("collection", users.Name()))
	return nil
}
