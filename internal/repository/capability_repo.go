package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/rawrecordscount/internal/models"
)

// CapabilityRepository answers capability questions in a course context. A user holds a
// capability when one of their roles in the course grants it.
type CapabilityRepository interface {
	UsersWithCapability(ctx context.Context, courseID uint, capability string) ([]uint, error)
	HasCapability(ctx context.Context, courseID, userID uint, capability string) (bool, error)
	HasRole(ctx context.Context, courseID, userID uint) (bool, error)
}

type capabilityRepository struct {
	db *gorm.DB
}

// NewCapabilityRepository instantiates a GORM-backed repository.
func NewCapabilityRepository(db *gorm.DB) CapabilityRepository {
	return &capabilityRepository{db: db}
}

func (r *capabilityRepository) grants(ctx context.Context, courseID uint, capability string) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.RoleAssignment{}).
		Joins("JOIN role_capabilities ON role_capabilities.role = role_assignments.role").
		Where("role_assignments.course_id = ?", courseID).
		Where("role_capabilities.capability = ?", capability)
}

// UsersWithCapability returns the distinct user ids holding capability, ascending.
func (r *capabilityRepository) UsersWithCapability(ctx context.Context, courseID uint, capability string) ([]uint, error) {
	var ids []uint
	err := r.grants(ctx, courseID, capability).
		Distinct().
		Order("role_assignments.user_id").
		Pluck("role_assignments.user_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *capabilityRepository) HasCapability(ctx context.Context, courseID, userID uint, capability string) (bool, error) {
	var count int64
	err := r.grants(ctx, courseID, capability).
		Where("role_assignments.user_id = ?", userID).
		Count(&count).Error
	return count > 0, err
}

func (r *capabilityRepository) HasRole(ctx context.Context, courseID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RoleAssignment{}).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Count(&count).Error
	return count > 0, err
}
