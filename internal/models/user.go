package models

// User is a read-only view of the platform user directory.
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	FirstName string `gorm:"size:100;not null" json:"first_name"`
	LastName  string `gorm:"size:100;not null" json:"last_name"`
	Email     string `gorm:"size:100;not null" json:"email"`
	Picture   uint   `gorm:"not null;default:0" json:"picture"`
	ImageAlt  string `gorm:"size:255" json:"image_alt"`
	Deleted   bool   `gorm:"not null;default:false" json:"deleted"`
}

// Enrolment records that a user participates in a course.
type Enrolment struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	CourseID  uint  `gorm:"not null;uniqueIndex:idx_enrolment_course_user" json:"course_id"`
	UserID    uint  `gorm:"not null;uniqueIndex:idx_enrolment_course_user;index" json:"user_id"`
	CreatedAt int64 `gorm:"autoCreateTime" json:"created_at"`
}
