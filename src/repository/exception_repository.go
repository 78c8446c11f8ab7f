package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"voicetrader/src/database"
	"voicetrader/src/model"
)

// ExceptionRepository persists failures caught at the trading operation boundary.
type ExceptionRepository struct {
	db *gorm.DB
}

// NewExceptionRepository binds db, falling back to the main database when db is nil.
func NewExceptionRepository(db *gorm.DB) *ExceptionRepository {
	if db == nil {
		db = database.MainDB
	}
	return &ExceptionRepository{db: db}
}

func (r *ExceptionRepository) WithDB(db *gorm.DB) *ExceptionRepository {
	r.db = db
	return r
}

func (r *ExceptionRepository) Create(
	ctx context.Context,
	exc *model.Exception,
) error {

	logger.WithFields(map[string]interface{}{
		"service": exc.Service,
		"module":  exc.Module,
		"method":  exc.Method,
		"level":   exc.Level,
	}).Debug("Persisting exception")

	return r.db.WithContext(ctx).Create(exc).Error
}
