package dto

// ReportEmailRequest queues the monthly dashboard PDF for delivery.
// Month and Year default to the current month.
type ReportEmailRequest struct {
	To    string `json:"to"    validate:"required,email"`
	Month int    `json:"month" validate:"omitempty,min=1,max=12"`
	Year  int    `json:"year"  validate:"omitempty,min=2000,max=2100"`
}
