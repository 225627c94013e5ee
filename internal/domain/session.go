package domain

import "time"

// SessionStatus is the lifecycle state of a clock session.
type SessionStatus string

const (
	StatusClockedIn  SessionStatus = "clocked_in"
	StatusPaused     SessionStatus = "paused"
	StatusClockedOut SessionStatus = "clocked_out"
)

// Active reports whether s counts towards the one-active-session-per-user limit.
func (s SessionStatus) Active() bool {
	return s == StatusClockedIn || s == StatusPaused
}

// Location is the optional position captured at clock-in. It is never updated.
type Location struct {
	Latitude  *float64
	Longitude *float64
	Address   string
}

// ClockSession is one continuous work period for one user.
type ClockSession struct {
	ID          string
	UserID      string
	IssueID     *int64 // external work item, optional
	ProjectName string
	ClockIn     time.Time
	ClockOut    *time.Time
	Status      SessionStatus
	PauseStart  *time.Time // set only while paused
	PauseReason string
	// PausedHours accumulates completed pause intervals; it never decreases.
	PausedHours float64
	TotalHours  *float64 // set only once clocked out
	Location    Location
}

// Active reports whether the session is clocked in or paused.
func (s *ClockSession) Active() bool { return s.Status.Active() }

// WorkedHours returns elapsed time since clock-in minus all pauses, including
// a pause still open at now. The result is not clamped or rounded.
func (s *ClockSession) WorkedHours(now time.Time) float64 {
	end := now
	if s.ClockOut != nil {
		end = *s.ClockOut
	}
	paused := s.PausedHours
	if s.Status == StatusPaused && s.PauseStart != nil {
		paused += end.Sub(*s.PauseStart).Hours()
	}
	return end.Sub(s.ClockIn).Hours() - paused
}
