package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prasad758/timesheet-version-sub000/internal/domain"
	"github.com/prasad758/timesheet-version-sub000/internal/ports"
)

// ClockOutRecorder posts the hours of a finished session into a timesheet.
type ClockOutRecorder interface {
	RecordClockOut(ctx context.Context, s *domain.ClockSession, hours float64) error
}

// ClockService drives the clock-in / pause / resume / clock-out lifecycle.
type ClockService struct {
	Log       *slog.Logger
	Sessions  ports.SessionStore
	Recorder  ClockOutRecorder
	WorkItems ports.WorkItems // optional
	Now       func() time.Time
	// SideEffectTimeout bounds the best-effort work done after a clock-out.
	SideEffectTimeout time.Duration

	wg sync.WaitGroup
}

// ClockInRequest carries the optional fields accepted at clock-in.
type ClockInRequest struct {
	UserID      string
	IssueID     *int64
	ProjectName string
	Latitude    *float64
	Longitude   *float64
	Address     string
}

// ClockOutResult reports the closed session. TimesheetUpdated is false when
// the hours could not be posted to the weekly timesheet; the clock-out itself
// still stands.
type ClockOutResult struct {
	Session          *domain.ClockSession
	TotalHours       float64
	TimesheetUpdated bool
}

func (c *ClockService) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// ClockIn opens a new session for the user.
func (c *ClockService) ClockIn(ctx context.Context, req ClockInRequest) (*domain.ClockSession, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if err := validateLocation(req.Latitude, req.Longitude); err != nil {
		return nil, err
	}
	active, err := c.Sessions.ActiveSession(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, domain.ErrAlreadyClockedIn
	}

	s := &domain.ClockSession{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		IssueID:     req.IssueID,
		ProjectName: strings.TrimSpace(req.ProjectName),
		ClockIn:     c.now(),
		Status:      domain.StatusClockedIn,
		Location: domain.Location{
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			Address:   strings.TrimSpace(req.Address),
		},
	}
	// The store's uniqueness constraint closes the gap between the check above
	// and this insert.
	if err := c.Sessions.CreateSession(ctx, s); err != nil {
		return nil, err
	}
	c.Log.Info("clocked in", slog.String("user", s.UserID), slog.String("session", s.ID))
	return s, nil
}

// Pause suspends the user's running session.
func (c *ClockService) Pause(ctx context.Context, userID, reason string) (*domain.ClockSession, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrReasonRequired
	}
	s, err := c.Sessions.ActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Status != domain.StatusClockedIn {
		return nil, domain.ErrNoActiveSession
	}

	at := c.now()
	if err := c.Sessions.MarkPaused(ctx, s.ID, at, reason); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoActiveSession
		}
		return nil, err
	}
	s.Status = domain.StatusPaused
	s.PauseStart = &at
	s.PauseReason = reason
	c.Log.Info("paused", slog.String("user", userID), slog.String("session", s.ID), slog.String("reason", reason))
	return s, nil
}

// Resume ends the current pause and adds its length to the paused total.
func (c *ClockService) Resume(ctx context.Context, userID string) (*domain.ClockSession, error) {
	s, err := c.Sessions.ActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Status != domain.StatusPaused || s.PauseStart == nil {
		return nil, domain.ErrNoPausedSession
	}

	paused := s.PausedHours + pauseLength(*s.PauseStart, c.now())
	if err := c.Sessions.MarkResumed(ctx, s.ID, paused); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoPausedSession
		}
		return nil, err
	}
	s.Status = domain.StatusClockedIn
	s.PausedHours = paused
	s.PauseStart = nil
	s.PauseReason = ""
	c.Log.Info("resumed", slog.String("user", userID), slog.String("session", s.ID), slog.Float64("paused_hours", paused))
	return s, nil
}

// ClockOut closes the user's active session. A pause still open at clock-out
// is closed at the same instant. Posting the comment and the timesheet hours
// are best-effort: their failures are logged and never fail the clock-out.
// The comment is posted in the background; call Wait to drain it.
func (c *ClockService) ClockOut(ctx context.Context, userID, comment string) (*ClockOutResult, error) {
	s, err := c.Sessions.ActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, domain.ErrNoActiveSession
	}

	at := c.now()
	paused := s.PausedHours
	if s.Status == domain.StatusPaused && s.PauseStart != nil {
		paused += pauseLength(*s.PauseStart, at)
	}
	worked := WorkedHours(at.Sub(s.ClockIn).Hours(), paused)

	if err := c.Sessions.MarkClockedOut(ctx, s.ID, at, paused, worked); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoActiveSession
		}
		return nil, err
	}
	s.Status = domain.StatusClockedOut
	s.ClockOut = &at
	s.PausedHours = paused
	s.PauseStart = nil
	s.PauseReason = ""
	s.TotalHours = &worked
	c.Log.Info("clocked out", slog.String("user", userID), slog.String("session", s.ID), slog.Float64("hours", worked))

	if comment = strings.TrimSpace(comment); comment != "" && s.IssueID != nil {
		sessionID, issueID := s.ID, *s.IssueID
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.postComment(ctx, issueID, comment); err != nil {
				c.Log.Warn("clock-out comment not posted",
					slog.String("session", sessionID), slog.Int64("issue", issueID), slog.String("error", err.Error()))
			}
		}()
	}

	res := &ClockOutResult{Session: s, TotalHours: worked}
	if worked > 0 {
		if err := c.record(ctx, s, worked); err != nil {
			c.Log.Warn("timesheet not updated after clock-out",
				slog.String("session", s.ID), slog.String("error", err.Error()))
		} else {
			res.TimesheetUpdated = true
		}
	}
	return res, nil
}

// Wait blocks until background clock-out side effects have finished.
func (c *ClockService) Wait() { c.wg.Wait() }

// Current returns the user's active session, or nil.
func (c *ClockService) Current(ctx context.Context, userID string) (*domain.ClockSession, error) {
	return c.Sessions.ActiveSession(ctx, userID)
}

// History lists the user's sessions that clocked in within [from, to).
func (c *ClockService) History(ctx context.Context, userID string, from, to time.Time) ([]domain.ClockSession, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: empty time range", domain.ErrInvalidInput)
	}
	return c.Sessions.ListSessions(ctx, userID, from, to)
}

func (c *ClockService) postComment(ctx context.Context, issueID int64, text string) error {
	if c.WorkItems == nil {
		return domain.ErrNotConfigured
	}
	ctx, cancel := c.detached(ctx)
	defer cancel()
	return c.WorkItems.AppendComment(ctx, issueID, text)
}

func (c *ClockService) record(ctx context.Context, s *domain.ClockSession, hours float64) error {
	if c.Recorder == nil {
		return errors.New("no timesheet recorder configured")
	}
	ctx, cancel := c.detached(ctx)
	defer cancel()
	return c.Recorder.RecordClockOut(ctx, s, hours)
}

// detached keeps best-effort work alive if the caller goes away once the
// session has been committed.
func (c *ClockService) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	d := c.SideEffectTimeout
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(context.WithoutCancel(ctx), d)
}

func pauseLength(start, end time.Time) float64 {
	h := end.Sub(start).Hours()
	if h < 0 {
		return 0
	}
	return h
}

func validateLocation(lat, lng *float64) error {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return fmt.Errorf("%w: latitude out of range", domain.ErrInvalidInput)
	}
	if lng != nil && (*lng < -180 || *lng > 180) {
		return fmt.Errorf("%w: longitude out of range", domain.ErrInvalidInput)
	}
	return nil
}
