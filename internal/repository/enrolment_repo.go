package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/rawrecordscount/internal/models"
)

// EnrolmentRepository reads course enrolments.
type EnrolmentRepository interface {
	IsEnrolled(ctx context.Context, courseID, userID uint) (bool, error)
}

type enrolmentRepository struct {
	db *gorm.DB
}

// NewEnrolmentRepository instantiates a GORM-backed repository.
func NewEnrolmentRepository(db *gorm.DB) EnrolmentRepository {
	return &enrolmentRepository{db: db}
}

func (r *enrolmentRepository) IsEnrolled(ctx context.Context, courseID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Enrolment{}).
		Joins("JOIN users ON users.id = enrolments.user_id").
		Where("enrolments.course_id = ? AND enrolments.user_id = ?", courseID, userID).
		Where("users.deleted = ?", false).
		Count(&count).Error
	return count > 0, err
}
