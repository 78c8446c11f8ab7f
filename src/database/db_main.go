package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"voicetrader/src/model"
)

// MainDB holds the audit journal. It stays nil when ENABLE_DB is false.
var MainDB *gorm.DB

// InitMainDB opens the audit database and migrates its tables. Call once at start-up.
func InitMainDB() error {
	config := GetConfig()
	if !config.EnableDB {
		logrus.Info("[database] ENABLE_DB=false, audit journal disabled")
		return nil
	}

	db, err := Open(config.DatabaseURLMain, config.GormLogLevel)
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB from GORM: %w", err)
	}
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxOpenConns / 2)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	if err := Migrate(db); err != nil {
		return err
	}

	MainDB = db
	logrus.Info("[database] MainDB connection established and migrated")
	return nil
}

// Open picks the driver from the URL: sqlite for "sqlite:" and "file:" URLs, postgres otherwise.
func Open(url string, logLevel int) (*gorm.DB, error) {
	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.LogLevel(logLevel)),
	}

	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(url, "sqlite:"):
		dialector = sqlite.Open(strings.TrimPrefix(url, "sqlite:"))
	case strings.HasPrefix(url, "file:"):
		dialector = sqlite.Open(url)
	default:
		dialector = postgres.Open(url)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the audit tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.TradeExecutionLog{},
		&model.Exception{},
	); err != nil {
		return fmt.Errorf("failed to run migrations on MainDB: %w", err)
	}
	return nil
}

func CloseMainDB() {
	if MainDB == nil {
		return
	}
	if sqlDB, err := MainDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	MainDB = nil
}
