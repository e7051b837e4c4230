package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/rawrecordscount/internal/models"
)

// LogRepository appends entries to the course activity log.
type LogRepository interface {
	Create(ctx context.Context, entry *models.LogEntry) error
}

type logRepository struct {
	db *gorm.DB
}

// NewLogRepository constructs the activity log repository.
func NewLogRepository(db *gorm.DB) LogRepository {
	return &logRepository{db: db}
}

func (r *logRepository) Create(ctx context.Context, entry *models.LogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
