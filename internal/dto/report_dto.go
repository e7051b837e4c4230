package dto

// ReportRequest captures the raw records count query parameters. Out is free-form; unknown
// formats render the HTML page.
type ReportRequest struct {
	CourseID uint   `json:"id" validate:"required,gt=0"`
	Out      string `json:"out"`
	// Group is nil when the request does not pick a group; 0 asks for all participants.
	Group *uint  `json:"group,omitempty"`
	Lang  string `json:"lang,omitempty" validate:"omitempty,max=16"`
}

// FieldError describes one invalid request parameter.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}
