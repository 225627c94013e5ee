package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/prasad758/timesheet-version-sub000/internal/domain"
	"github.com/prasad758/timesheet-version-sub000/internal/ports"
	"github.com/prasad758/timesheet-version-sub000/internal/week"
)

// TimesheetService merges manual, time-clock and leave hours into weekly
// timesheets.
type TimesheetService struct {
	Log       *slog.Logger
	Store     ports.TimesheetStore
	Leave     ports.LeaveStore
	WorkItems ports.WorkItems // optional
	// Location is the calendar used for week bucketing. Defaults to time.Local.
	Location *time.Location
}

func (t *TimesheetService) loc() *time.Location {
	if t.Location != nil {
		return t.Location
	}
	return time.Local
}

// WeekOf returns the Monday of the week containing d, in the service calendar.
func (t *TimesheetService) WeekOf(d time.Time) time.Time {
	return week.StartMonday(week.Rebase(d, t.loc()))
}

// RecordClockOut adds hours from a finished session to the time_clock row of
// the week and day on which the session clocked out.
func (t *TimesheetService) RecordClockOut(ctx context.Context, s *domain.ClockSession, hours float64) error {
	if s.ClockOut == nil {
		return fmt.Errorf("session %s has not clocked out", s.ID)
	}
	if hours <= 0 {
		return nil
	}
	at := s.ClockOut.In(t.loc())
	ts, err := t.Store.EnsureTimesheet(ctx, s.UserID, week.StartMonday(at))
	if err != nil {
		return fmt.Errorf("ensure timesheet: %w", err)
	}
	key := t.sessionKey(ctx, s)
	day := week.DayColumn(at)
	if err := t.Store.AddClockHours(ctx, ts.ID, key, day, Round2(hours)); err != nil {
		return fmt.Errorf("add clock hours: %w", err)
	}
	t.Log.Info("timesheet updated from clock-out",
		slog.String("user", s.UserID),
		slog.String("week", week.FormatDate(ts.WeekStart)),
		slog.String("day", day.String()),
		slog.String("project", key.Project),
		slog.String("task", key.Task),
		slog.Float64("hours", hours))
	return nil
}

// sessionKey resolves the project and task labels a session books against.
func (t *TimesheetService) sessionKey(ctx context.Context, s *domain.ClockSession) domain.Key {
	project := s.ProjectName
	if project == "" {
		project = DefaultProject
	}
	if s.IssueID == nil {
		return domain.Key{Project: project, Task: DefaultTask}
	}

	fallback := domain.Key{Project: project, Task: IssueTask(*s.IssueID)}
	if t.WorkItems == nil {
		return fallback
	}
	item, err := t.WorkItems.GetWorkItem(ctx, *s.IssueID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotConfigured) {
			t.Log.Warn("work item lookup failed, using fallback labels",
				slog.Int64("issue", *s.IssueID), slog.String("error", err.Error()))
		}
		return fallback
	}
	return IssueKey(item, project)
}

// GetWeek builds the merged view of one user-week. Persisted rows win; leave
// rows and assigned-issue placeholders are derived on every call and only
// fill keys not already present. Reading never writes.
func (t *TimesheetService) GetWeek(ctx context.Context, userID string, weekStart time.Time) (*domain.WeekView, error) {
	ws := t.WeekOf(weekStart)
	we := week.End(ws)

	ts, err := t.Store.FindTimesheet(ctx, userID, ws)
	if err != nil {
		return nil, err
	}
	view := &domain.WeekView{}
	if ts != nil {
		view.Timesheet = *ts
		if view.Entries, err = t.Store.ListEntries(ctx, ts.ID); err != nil {
			return nil, err
		}
	} else {
		view.Timesheet = domain.Timesheet{UserID: userID, WeekStart: ws, WeekEnd: we, Status: domain.TimesheetDraft}
	}

	covered := make(map[domain.Key]bool, len(view.Entries))
	for i := range view.Entries {
		covered[view.Entries[i].Key()] = true
	}

	leaves, err := t.Leave.ListApprovedLeave(ctx, userID, ws, we)
	if err != nil {
		return nil, fmt.Errorf("list approved leave: %w", err)
	}
	for _, e := range DeriveLeaveEntries(leaves, ws, we) {
		if covered[e.Key()] {
			continue
		}
		covered[e.Key()] = true
		e.TimesheetID = view.Timesheet.ID
		view.Entries = append(view.Entries, e)
	}

	for _, e := range t.placeholders(ctx, userID, covered) {
		e.TimesheetID = view.Timesheet.ID
		view.Entries = append(view.Entries, e)
	}
	return view, nil
}

func (t *TimesheetService) placeholders(ctx context.Context, userID string, covered map[domain.Key]bool) []domain.Entry {
	if t.WorkItems == nil {
		return nil
	}
	items, err := t.WorkItems.ListAssigned(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotConfigured) {
			t.Log.Warn("assigned work items unavailable, omitting placeholders",
				slog.String("user", userID), slog.String("error", err.Error()))
		}
		return nil
	}
	return DeriveAssignedPlaceholders(items, covered)
}

// SaveManualEntries replaces the manual rows of the user's week with entries.
// Rows echoed back with a read-only source are skipped, and rows without a
// project, a task or any positive hours are dropped. Negative or non-finite
// hours reject the whole save before anything is written.
func (t *TimesheetService) SaveManualEntries(ctx context.Context, userID string, weekStart time.Time, entries []domain.Entry) (string, int, error) {
	keep := make([]domain.Entry, 0, len(entries))
	for i, e := range entries {
		src := e.Source
		if src == "" {
			src = domain.SourceManual
		}
		if !src.Valid() {
			return "", 0, fmt.Errorf("%w: entry %d has unknown source %q", domain.ErrInvalidInput, i, e.Source)
		}
		if src != domain.SourceManual {
			continue
		}
		for d, h := range e.Hours {
			if math.IsNaN(h) || math.IsInf(h, 0) || h < 0 {
				return "", 0, fmt.Errorf("%w: entry %d has invalid %s hours", domain.ErrInvalidInput, i, week.Day(d))
			}
		}
		e.Project = strings.TrimSpace(e.Project)
		e.Task = strings.TrimSpace(e.Task)
		if e.Project == "" || e.Task == "" || !e.HasHours() {
			continue
		}
		for d := range e.Hours {
			e.Hours[d] = Round2(e.Hours[d])
		}
		e.ID = ""
		e.Source = domain.SourceManual
		e.Placeholder = false
		keep = append(keep, e)
	}

	ts, err := t.Store.EnsureTimesheet(ctx, userID, t.WeekOf(weekStart))
	if err != nil {
		return "", 0, err
	}
	if err := t.Store.ReplaceManualEntries(ctx, ts.ID, keep); err != nil {
		return "", 0, err
	}
	t.Log.Info("manual timesheet saved",
		slog.String("user", userID),
		slog.String("week", week.FormatDate(ts.WeekStart)),
		slog.Int("entries", len(keep)),
		slog.Int("skipped", len(entries)-len(keep)))
	return ts.ID, len(keep), nil
}

// SubmitWeek tags the user's week as submitted.
func (t *TimesheetService) SubmitWeek(ctx context.Context, userID string, weekStart time.Time) (*domain.Timesheet, error) {
	ts, err := t.Store.EnsureTimesheet(ctx, userID, t.WeekOf(weekStart))
	if err != nil {
		return nil, err
	}
	if err := t.Store.SetTimesheetStatus(ctx, ts.ID, domain.TimesheetSubmitted); err != nil {
		return nil, err
	}
	ts.Status = domain.TimesheetSubmitted
	return ts, nil
}
