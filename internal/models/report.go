package models

// ReportRow is one line of the raw records count report.
type ReportRow struct {
	UserID    uint
	FirstName string
	LastName  string
	Picture   uint
	ImageAlt  string
	Email     string
	Count     int64
}

// All returns every model the report reads or writes, in migration order.
func All() []interface{} {
	return []interface{}{
		&Course{},
		&Group{},
		&GroupMember{},
		&User{},
		&Enrolment{},
		&LogEntry{},
		&RoleAssignment{},
		&RoleCapability{},
	}
}
