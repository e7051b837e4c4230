package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/rawrecordscount/internal/models"
)

// GroupRepository reads course groups and their memberships.
type GroupRepository interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.Group, error)
	ListForUser(ctx context.Context, courseID, userID uint) ([]models.Group, error)
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository instantiates a GORM-backed repository.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Group, error) {
	var groups []models.Group
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("id ASC").
		Find(&groups).Error; err != nil {
		return nil, err
	}

	return groups, nil
}

func (r *groupRepository) ListForUser(ctx context.Context, courseID, userID uint) ([]models.Group, error) {
	var groups []models.Group
	if err := r.db.WithContext(ctx).
		Joins("JOIN group_members ON group_members.group_id = course_groups.id").
		Where("course_groups.course_id = ? AND group_members.user_id = ?", courseID, userID).
		Order("course_groups.id ASC").
		Find(&groups).Error; err != nil {
		return nil, err
	}

	return groups, nil
}
