package domain

import "time"

// Leave request states.
const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

// LeaveRequest is a request for leave over an inclusive calendar date range.
type LeaveRequest struct {
	ID        string
	UserID    string
	LeaveType string
	Reason    string
	StartDate time.Time
	EndDate   time.Time
	Status    string
	DecidedBy string
	DecidedAt *time.Time
	CreatedAt time.Time
}
