package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prasad758/timesheet-version-sub000/internal/domain"
	"github.com/prasad758/timesheet-version-sub000/internal/week"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time                 { return c.t }
func (c *clock) Advance(d time.Duration)        { c.t = c.t.Add(d) }
func newClock(t time.Time) *clock               { return &clock{t: t} }
func ptr[T any](v T) *T                         { return &v }
func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// memSessions is an in-memory ports.SessionStore.
type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.ClockSession
	creates  int
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]*domain.ClockSession{}}
}

func (m *memSessions) CreateSession(_ context.Context, s *domain.ClockSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.sessions {
		if o.UserID == s.UserID && o.Active() {
			return domain.ErrAlreadyClockedIn
		}
	}
	cp := *s
	m.sessions[s.ID] = &cp
	m.creates++
	return nil
}

func (m *memSessions) ActiveSession(_ context.Context, userID string) (*domain.ClockSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == userID && s.Active() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memSessions) MarkPaused(_ context.Context, id string, at time.Time, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != domain.StatusClockedIn {
		return domain.ErrNotFound
	}
	s.Status = domain.StatusPaused
	s.PauseStart = &at
	s.PauseReason = reason
	return nil
}

func (m *memSessions) MarkResumed(_ context.Context, id string, pausedHours float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != domain.StatusPaused {
		return domain.ErrNotFound
	}
	s.Status = domain.StatusClockedIn
	s.PauseStart = nil
	s.PauseReason = ""
	s.PausedHours = pausedHours
	return nil
}

func (m *memSessions) MarkClockedOut(_ context.Context, id string, at time.Time, pausedHours, totalHours float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || !s.Active() {
		return domain.ErrNotFound
	}
	s.Status = domain.StatusClockedOut
	s.ClockOut = &at
	s.PauseStart = nil
	s.PauseReason = ""
	s.PausedHours = pausedHours
	s.TotalHours = &totalHours
	return nil
}

func (m *memSessions) GetSession(_ context.Context, id string) (*domain.ClockSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) ListSessions(_ context.Context, userID string, from, to time.Time) ([]domain.ClockSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ClockSession
	for _, s := range m.sessions {
		if s.UserID == userID && !s.ClockIn.Before(from) && s.ClockIn.Before(to) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockIn.Before(out[j].ClockIn) })
	return out, nil
}

// recorderFunc adapts a function to ClockOutRecorder.
type recorderFunc func(ctx context.Context, s *domain.ClockSession, hours float64) error

func (f recorderFunc) RecordClockOut(ctx context.Context, s *domain.ClockSession, hours float64) error {
	return f(ctx, s, hours)
}

// fakeWorkItems is a scripted ports.WorkItems.
type fakeWorkItems struct {
	items     map[int64]domain.WorkItem
	assigned  []domain.WorkItem
	getErr    error
	listErr   error
	commentEr error
	// block, when set, holds AppendComment until it is closed.
	block chan struct{}

	mu       sync.Mutex
	comments map[int64][]string
}

func (f *fakeWorkItems) GetWorkItem(_ context.Context, id int64) (domain.WorkItem, error) {
	if f.getErr != nil {
		return domain.WorkItem{}, f.getErr
	}
	it, ok := f.items[id]
	if !ok {
		return domain.WorkItem{}, domain.ErrNotFound
	}
	return it, nil
}

func (f *fakeWorkItems) ListAssigned(context.Context, string) ([]domain.WorkItem, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.assigned, nil
}

func (f *fakeWorkItems) AppendComment(ctx context.Context, id int64, text string) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.commentEr != nil {
		return f.commentEr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.comments == nil {
		f.comments = map[int64][]string{}
	}
	f.comments[id] = append(f.comments[id], text)
	return nil
}

// memTimesheets is an in-memory ports.TimesheetStore that counts writes.
type memTimesheets struct {
	mu      sync.Mutex
	sheets  map[string]*domain.Timesheet
	entries map[string][]domain.Entry
	writes  int
	failAdd error
}

func newMemTimesheets() *memTimesheets {
	return &memTimesheets{sheets: map[string]*domain.Timesheet{}, entries: map[string][]domain.Entry{}}
}

func sheetKey(userID string, ws time.Time) string { return userID + "|" + week.FormatDate(ws) }

func (m *memTimesheets) EnsureTimesheet(_ context.Context, userID string, ws time.Time) (*domain.Timesheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := sheetKey(userID, ws)
	if ts, ok := m.sheets[k]; ok {
		cp := *ts
		return &cp, nil
	}
	m.writes++
	ts := &domain.Timesheet{ID: uuid.NewString(), UserID: userID, WeekStart: ws, WeekEnd: week.End(ws), Status: domain.TimesheetDraft}
	m.sheets[k] = ts
	cp := *ts
	return &cp, nil
}

func (m *memTimesheets) FindTimesheet(_ context.Context, userID string, ws time.Time) (*domain.Timesheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.sheets[sheetKey(userID, ws)]
	if !ok {
		return nil, nil
	}
	cp := *ts
	return &cp, nil
}

func (m *memTimesheets) SetTimesheetStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ts := range m.sheets {
		if ts.ID == id {
			m.writes++
			ts.Status = status
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memTimesheets) ListEntries(_ context.Context, tsID string) ([]domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Entry(nil), m.entries[tsID]...), nil
}

func (m *memTimesheets) AddClockHours(_ context.Context, tsID string, key domain.Key, day week.Day, hours float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAdd != nil {
		return m.failAdd
	}
	m.writes++
	rows := m.entries[tsID]
	for i := range rows {
		if rows[i].Source == domain.SourceTimeClock && rows[i].Key() == key {
			rows[i].Hours[day] += hours
			return nil
		}
	}
	e := domain.Entry{ID: uuid.NewString(), TimesheetID: tsID, Project: key.Project, Task: key.Task, Source: domain.SourceTimeClock}
	e.Hours[day] = hours
	m.entries[tsID] = append(rows, e)
	return nil
}

func (m *memTimesheets) ReplaceManualEntries(_ context.Context, tsID string, entries []domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	var kept []domain.Entry
	for _, e := range m.entries[tsID] {
		if e.Source != domain.SourceManual {
			kept = append(kept, e)
		}
	}
	for _, e := range entries {
		e.ID = uuid.NewString()
		e.TimesheetID = tsID
		kept = append(kept, e)
	}
	m.entries[tsID] = kept
	return nil
}

// clockRow returns the time_clock entry for key in the user's week, if any.
func (m *memTimesheets) clockRow(userID string, ws time.Time, key domain.Key) (domain.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.sheets[sheetKey(userID, ws)]
	if !ok {
		return domain.Entry{}, false
	}
	for _, e := range m.entries[ts.ID] {
		if e.Source == domain.SourceTimeClock && e.Key() == key {
			return e, true
		}
	}
	return domain.Entry{}, false
}

// memLeave is an in-memory ports.LeaveStore.
type memLeave struct {
	mu     sync.Mutex
	leaves []domain.LeaveRequest
	err    error
}

func (m *memLeave) CreateLeave(_ context.Context, l *domain.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaves = append(m.leaves, *l)
	return nil
}

func (m *memLeave) GetLeave(_ context.Context, id string) (*domain.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.leaves {
		if m.leaves[i].ID == id {
			cp := m.leaves[i]
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memLeave) DecideLeave(_ context.Context, id, status, decidedBy string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.leaves {
		if m.leaves[i].ID == id && m.leaves[i].Status == domain.LeavePending {
			m.leaves[i].Status = status
			m.leaves[i].DecidedBy = decidedBy
			m.leaves[i].DecidedAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memLeave) ListLeave(_ context.Context, userID string) ([]domain.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.LeaveRequest
	for _, l := range m.leaves {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memLeave) ListApprovedLeave(_ context.Context, userID string, from, to time.Time) ([]domain.LeaveRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.LeaveRequest
	for _, l := range m.leaves {
		if l.UserID == userID && l.Status == domain.LeaveApproved && !l.StartDate.After(to) && !l.EndDate.Before(from) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeWorkItems) commentsFor(id int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.comments[id]...)
}

var errBoom = errors.New("boom")
