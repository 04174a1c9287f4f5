package storage

import (
	"chatgraph/backend/internal/config"
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect builds the Storage described by cfg: PostgreSQL (plus Redis when
// REDIS_ADDR is set) if DATABASE_DSN is configured, a FileStore otherwise.
// The returned Service is nil for a FileStore.
func Connect(ctx context.Context, cfg *config.Config) (Storage, *Service, error) {
	if cfg.DatabaseDSN == "" {
		log.Printf("INFO: DATABASE_DSN is empty, keeping snapshots in %s", cfg.SnapshotDir)
		fs, err := NewFileStore(cfg.SnapshotDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	}

	// 1. PostgreSQL
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}

	// 2. Redis (необов'язковий)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			return nil, nil, fmt.Errorf("connect Redis: %w", err)
		}
	}

	// 3. Міграції
	svc := NewStorageService(db, rdb)
	if err := svc.Migrate(); err != nil {
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	log.Println("INFO: Database connection established, migrations complete.")
	return svc, svc, nil
}
