package models

import "time"

// GroupMode controls how course groups restrict what participants can see.
type GroupMode int

const (
	// GroupModeNone disables groups for the course.
	GroupModeNone GroupMode = 0
	// GroupModeSeparate limits participants to their own groups.
	GroupModeSeparate GroupMode = 1
	// GroupModeVisible lets participants see every group while working in their own.
	GroupModeVisible GroupMode = 2
)

// Course is a course whose activity can be reported on.
type Course struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ShortName string    `gorm:"size:255;not null" json:"short_name"`
	FullName  string    `gorm:"size:1333;not null" json:"full_name"`
	GroupMode GroupMode `gorm:"not null;default:0" json:"group_mode"`
	CreatedAt time.Time `json:"created_at"`
}

// UsesGroups reports whether the course restricts participants by group.
func (c Course) UsesGroups() bool {
	return c.GroupMode == GroupModeSeparate || c.GroupMode == GroupModeVisible
}

// Group is a named subset of a course's participants.
type Group struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	CourseID uint   `gorm:"not null;index" json:"course_id"`
	Name     string `gorm:"size:254;not null" json:"name"`
}

// TableName keeps the table clear of the GROUPS keyword.
func (Group) TableName() string {
	return "course_groups"
}

// GroupMember links a user to a group.
type GroupMember struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	GroupID uint `gorm:"not null;uniqueIndex:idx_group_member" json:"group_id"`
	UserID  uint `gorm:"not null;uniqueIndex:idx_group_member;index" json:"user_id"`
}
