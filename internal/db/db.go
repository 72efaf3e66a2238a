package db

import (
	"fmt"
	"time"

	"github.com/sadoj/intel-backend/internal/config"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens postgres when DATABASE_URL is set and the local sqlite file
// otherwise. On postgres the configured schema is created and put on the
// search_path of every pooled connection.
func Connect(cfg config.Config) (*gorm.DB, error) {
	// Surface slow queries in the application log.
	lg := logger.New(
		logrus.StandardLogger(),
		logger.Config{
			SlowThreshold:             100 * time.Millisecond,
			LogLevel:                  gormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gormCfg := &gorm.Config{
		Logger:         lg,
		TranslateError: true,
	}

	if !cfg.UsesPostgres() {
		db, err := gorm.Open(sqlite.Open(SQLiteDSN(cfg.SQLitePath)), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		logrus.Infof("Connected to sqlite database %s", cfg.SQLitePath)
		return db, nil
	}

	if cfg.DBSchema != "" {
		if err := prepareSchema(cfg.DatabaseURL, cfg.DBSchema, gormCfg); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(postgres.Open(WithSearchPath(cfg.DatabaseURL, cfg.DBSchema)), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logrus.Infof("Connected to database (schema %q)", cfg.DBSchema)
	return db, nil
}

func prepareSchema(dsn, schema string, gormCfg *gorm.Config) error {
	boot, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if sqlDB, err := boot.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	if err := EnsureSchema(boot, schema); err != nil {
		return fmt.Errorf("ensure schema %s: %w", schema, err)
	}
	return nil
}

// SQLiteDSN enables foreign keys so ON DELETE rules hold on sqlite too.
func SQLiteDSN(path string) string {
	return path + "?_foreign_keys=on"
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug", "trace":
		return logger.Info
	case "warn", "warning":
		return logger.Warn
	case "error", "fatal", "panic":
		return logger.Error
	default:
		return logger.Warn
	}
}
