package database

import (
	"fmt"
	"time"

	"pollux-backend/pkg/config"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewPostgresConnection opens the shared connection pool, retrying with
// exponential backoff. Exhausting the configured attempts is fatal for the
// caller; everything downstream needs the store.
func NewPostgresConnection(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB)

	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= cfg.DBConnectRetries; attempt++ {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			return db, nil
		}
		lastErr = err

		logger.Warn("database not reachable, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.DBConnectRetries),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		time.Sleep(backoff)
		backoff *= 2
	}

	return nil, fmt.Errorf("connecting to postgres after %d attempts: %w", cfg.DBConnectRetries, lastErr)
}
