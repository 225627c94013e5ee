package ports

import (
	"context"
	"time"

	"github.com/prasad758/timesheet-version-sub000/internal/domain"
	"github.com/prasad758/timesheet-version-sub000/internal/week"
)

// SessionStore persists clock sessions.
//
// Transition methods are conditional on the session's current status and
// report domain.ErrNotFound when the guard no longer matches, so two racing
// transitions on one session cannot both apply.
type SessionStore interface {
	// CreateSession inserts s. It returns domain.ErrAlreadyClockedIn when the
	// user already has an active session.
	CreateSession(ctx context.Context, s *domain.ClockSession) error
	ActiveSession(ctx context.Context, userID string) (*domain.ClockSession, error)
	MarkPaused(ctx context.Context, id string, at time.Time, reason string) error
	MarkResumed(ctx context.Context, id string, pausedHours float64) error
	MarkClockedOut(ctx context.Context, id string, at time.Time, pausedHours, totalHours float64) error
	GetSession(ctx context.Context, id string) (*domain.ClockSession, error)
	ListSessions(ctx context.Context, userID string, from, to time.Time) ([]domain.ClockSession, error)
}

// TimesheetStore persists weekly timesheets and their entries.
type TimesheetStore interface {
	// EnsureTimesheet finds or creates the (user, weekStart) timesheet.
	EnsureTimesheet(ctx context.Context, userID string, weekStart time.Time) (*domain.Timesheet, error)
	// FindTimesheet returns nil when the user has no timesheet for weekStart.
	FindTimesheet(ctx context.Context, userID string, weekStart time.Time) (*domain.Timesheet, error)
	SetTimesheetStatus(ctx context.Context, id, status string) error
	ListEntries(ctx context.Context, timesheetID string) ([]domain.Entry, error)
	// AddClockHours adds hours to the time_clock entry for key, creating it if
	// needed. Exactly one such row exists per (timesheet, project, task).
	AddClockHours(ctx context.Context, timesheetID string, key domain.Key, day week.Day, hours float64) error
	// ReplaceManualEntries deletes the timesheet's manual rows and inserts
	// entries in one transaction. Rows of other sources are never touched.
	ReplaceManualEntries(ctx context.Context, timesheetID string, entries []domain.Entry) error
}

// LeaveStore persists leave requests.
type LeaveStore interface {
	CreateLeave(ctx context.Context, l *domain.LeaveRequest) error
	GetLeave(ctx context.Context, id string) (*domain.LeaveRequest, error)
	DecideLeave(ctx context.Context, id, status, decidedBy string, at time.Time) error
	ListLeave(ctx context.Context, userID string) ([]domain.LeaveRequest, error)
	// ListApprovedLeave returns approved requests overlapping [from, to].
	ListApprovedLeave(ctx context.Context, userID string, from, to time.Time) ([]domain.LeaveRequest, error)
}

// Store is the full persistence surface backed by one database.
type Store interface {
	SessionStore
	TimesheetStore
	LeaveStore
	Ping(ctx context.Context) error
	Close() error
}

// WorkItems reads and annotates issues in the external tracker.
type WorkItems interface {
	GetWorkItem(ctx context.Context, id int64) (domain.WorkItem, error)
	ListAssigned(ctx context.Context, userID string) ([]domain.WorkItem, error)
	AppendComment(ctx context.Context, id int64, text string) error
}
