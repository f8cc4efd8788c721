package db

import (
	"fmt"

	"forecast-ingest/edi/internal/config"
	"forecast-ingest/edi/internal/logging"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitPostgresORM opens the gorm handle every repository is built from
func InitPostgresORM(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logging.Info("Connected to Postgres via GORM", "host", cfg.Host, "database", cfg.Name)
	return db, nil
}
