package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"voicetrader/src/database"
	"voicetrader/src/model"
)

const defaultLatestLimit = 20

// TradeLogRepository writes the trade execution journal.
type TradeLogRepository struct {
	db *gorm.DB
}

// NewTradeLogRepository creates a repository on db, or on the main database when db is nil.
func NewTradeLogRepository(db *gorm.DB) *TradeLogRepository {
	if db == nil {
		logger.WithField("component", "TradeLogRepository").
			Debug("Creating new TradeLogRepository with MainDB")
		db = database.MainDB
	}
	return &TradeLogRepository{db: db}
}

// WithDB overrides the underlying *gorm.DB instance, e.g. in tests.
func (r *TradeLogRepository) WithDB(db *gorm.DB) *TradeLogRepository {
	r.db = db
	return r
}

// Create inserts entry; its ID and CreatedAt are filled in.
func (r *TradeLogRepository) Create(
	ctx context.Context,
	entry *model.TradeExecutionLog,
) error {

	err := r.db.WithContext(ctx).Create(entry).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeLogRepository",
			"op":   "Create",
			"kind": entry.Kind,
		}).WithError(err).Error("Failed to create trade execution log")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":   "TradeLogRepository",
		"op":     "Create",
		"id":     entry.ID,
		"kind":   entry.Kind,
		"status": entry.Status,
	}).Info("Trade execution logged")

	return nil
}

// FindLatest returns the most recent entries, newest first. kind filters when non-empty.
func (r *TradeLogRepository) FindLatest(
	ctx context.Context,
	kind string,
	limit int,
) ([]model.TradeExecutionLog, error) {
	if limit <= 0 {
		limit = defaultLatestLimit
	}

	query := r.db.WithContext(ctx).Model(&model.TradeExecutionLog{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var entries []model.TradeExecutionLog
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
