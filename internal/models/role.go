package models

// Capabilities consulted by the report.
const (
	CapabilityViewReport       = "report/rawrecordscount:view"
	CapabilityManageActivities = "moodle/course:manageactivities"
	CapabilityAccessAllGroups  = "moodle/site:accessallgroups"
)

// RoleAssignment grants a role to a user within a course.
type RoleAssignment struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	CourseID uint   `gorm:"not null;index:idx_role_assignment_course_user" json:"course_id"`
	UserID   uint   `gorm:"not null;index:idx_role_assignment_course_user" json:"user_id"`
	Role     string `gorm:"size:100;not null" json:"role"`
}

// RoleCapability lists a capability granted by a role.
type RoleCapability struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Role       string `gorm:"size:100;not null;uniqueIndex:idx_role_capability" json:"role"`
	Capability string `gorm:"size:255;not null;uniqueIndex:idx_role_capability" json:"capability"`
}
