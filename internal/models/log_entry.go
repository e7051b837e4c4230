package models

import (
	"time"

	"gorm.io/datatypes"
)

// LogEntry is one record of the course activity log. The report counts these per user.
type LogEntry struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	CourseID  uint              `gorm:"not null;index:idx_log_course_user" json:"course_id"`
	UserID    uint              `gorm:"not null;index:idx_log_course_user" json:"user_id"`
	Module    string            `gorm:"size:20;not null" json:"module"`
	Action    string            `gorm:"size:40;not null" json:"action"`
	URL       string            `gorm:"size:100" json:"url"`
	Info      string            `gorm:"size:255" json:"info"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}
