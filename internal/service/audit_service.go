package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/rawrecordscount/internal/models"
	"github.com/noah-isme/rawrecordscount/internal/repository"
)

const (
	auditModule = "course"
	auditAction = "report rawrecordscount"
)

// ViewEntry describes one report view for the course log.
type ViewEntry struct {
	CourseID      uint
	UserID        uint
	Path          string
	Format        string
	CorrelationID string
}

// AuditService records report views in the course log.
type AuditService interface {
	RecordView(ctx context.Context, entry ViewEntry) error
}

type auditService struct {
	repo   repository.LogRepository
	logger zerolog.Logger
}

// NewAuditService constructs the audit log writer.
func NewAuditService(repo repository.LogRepository, logger zerolog.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) RecordView(ctx context.Context, entry ViewEntry) error {
	if entry.CourseID == 0 {
		return fmt.Errorf("course id is required")
	}

	model := models.LogEntry{
		CourseID: entry.CourseID,
		UserID:   entry.UserID,
		Module:   auditModule,
		Action:   auditAction,
		URL:      fmt.Sprintf("report/rawrecordscount/index.php?id=%d", entry.CourseID),
		Info:     fmt.Sprintf("%d", entry.CourseID),
		Metadata: sanitizeMetadata(map[string]interface{}{
			"path":           entry.Path,
			"format":         entry.Format,
			"correlation_id": entry.CorrelationID,
		}),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Uint("course_id", entry.CourseID).Msg("failed to persist report view")
		return fmt.Errorf("record report view: %w", err)
	}

	return nil
}

// sanitizeMetadata drops empty values and masks anything that looks like a credential.
func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		if text, ok := value.(string); ok {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			value = maskQuerySecrets(text)
		}

		lower := strings.ToLower(key)
		if strings.Contains(lower, "token") || strings.Contains(lower, "secret") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

// maskQuerySecrets hides token-like query parameters that ended up in a logged path.
func maskQuerySecrets(raw string) string {
	path, query, ok := strings.Cut(raw, "?")
	if !ok {
		return raw
	}

	params := strings.Split(query, "&")
	for i, param := range params {
		name, _, _ := strings.Cut(param, "=")
		lower := strings.ToLower(name)
		if strings.Contains(lower, "token") || strings.Contains(lower, "secret") {
			params[i] = name + "=***"
		}
	}
	return path + "?" + strings.Join(params, "&")
}
