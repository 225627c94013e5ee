package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/prasad758/timesheet-version-sub000/internal/domain"
)

const sessionColumns = `id, user_id, issue_id, project_name, clock_in, clock_out, status,
  pause_start, pause_reason, paused_hours, total_hours, latitude, longitude, location_address`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*domain.ClockSession, error) {
	var (
		s          domain.ClockSession
		issueID    sql.NullInt64
		clockIn    timeValue
		clockOut   timeValue
		pauseStart timeValue
		total      sql.NullFloat64
		lat, lng   sql.NullFloat64
		status     string
	)
	if err := r.Scan(&s.ID, &s.UserID, &issueID, &s.ProjectName, &clockIn, &clockOut, &status,
		&pauseStart, &s.PauseReason, &s.PausedHours, &total, &lat, &lng, &s.Location.Address); err != nil {
		return nil, err
	}
	s.Status = domain.SessionStatus(status)
	s.ClockIn = clockIn.Time
	s.ClockOut = clockOut.ptr()
	s.PauseStart = pauseStart.ptr()
	if issueID.Valid {
		id := issueID.Int64
		s.IssueID = &id
	}
	if total.Valid {
		h := total.Float64
		s.TotalHours = &h
	}
	if lat.Valid {
		v := lat.Float64
		s.Location.Latitude = &v
	}
	if lng.Valid {
		v := lng.Float64
		s.Location.Longitude = &v
	}
	return &s, nil
}

// CreateSession inserts a clocked-in session. The schema allows one active
// session per user, so a concurrent clock-in fails here.
func (s *Store) CreateSession(ctx context.Context, cs *domain.ClockSession) error {
	var issue, lat, lng any
	if cs.IssueID != nil {
		issue = *cs.IssueID
	}
	if cs.Location.Latitude != nil {
		lat = *cs.Location.Latitude
	}
	if cs.Location.Longitude != nil {
		lng = *cs.Location.Longitude
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO clock_sessions
  (id, user_id, issue_id, project_name, clock_in, status, pause_reason, paused_hours, latitude, longitude, location_address)
VALUES
  (?, ?, ?, ?, ?, ?, '', 0, ?, ?, ?)`,
		cs.ID, cs.UserID, issue, cs.ProjectName, s.ts(cs.ClockIn), string(cs.Status), lat, lng, cs.Location.Address)
	if err != nil {
		if s.d.isUnique(err) {
			return domain.ErrAlreadyClockedIn
		}
		return err
	}
	return nil
}

// ActiveSession returns the user's clocked-in or paused session, or nil.
func (s *Store) ActiveSession(ctx context.Context, userID string) (*domain.ClockSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+`
FROM clock_sessions
WHERE user_id = ? AND status IN ('clocked_in', 'paused')
ORDER BY clock_in DESC
LIMIT 1`, userID)
	cs, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return cs, err
}

// GetSession returns the session with the given id.
func (s *Store) GetSession(ctx context.Context, id string) (*domain.ClockSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM clock_sessions WHERE id = ?`, id)
	cs, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return cs, err
}

func (s *Store) MarkPaused(ctx context.Context, id string, at time.Time, reason string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE clock_sessions
SET status = 'paused', pause_start = ?, pause_reason = ?
WHERE id = ? AND status = 'clocked_in'`, s.ts(at), reason, id)
	if err != nil {
		return err
	}
	return expectRow(res, domain.ErrNotFound)
}

func (s *Store) MarkResumed(ctx context.Context, id string, pausedHours float64) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE clock_sessions
SET status = 'clocked_in', pause_start = NULL, pause_reason = '', paused_hours = ?
WHERE id = ? AND status = 'paused'`, pausedHours, id)
	if err != nil {
		return err
	}
	return expectRow(res, domain.ErrNotFound)
}

func (s *Store) MarkClockedOut(ctx context.Context, id string, at time.Time, pausedHours, totalHours float64) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE clock_sessions
SET status = 'clocked_out', clock_out = ?, pause_start = NULL, pause_reason = '',
    paused_hours = ?, total_hours = ?
WHERE id = ? AND status IN ('clocked_in', 'paused')`, s.ts(at), pausedHours, totalHours, id)
	if err != nil {
		return err
	}
	if err := expectRow(res, domain.ErrNotFound); err != nil {
		return err
	}
	s.log.Debug("session closed", slog.String("session", id), slog.Float64("hours", totalHours))
	return nil
}

// ListSessions returns sessions that clocked in within [from, to), oldest first.
func (s *Store) ListSessions(ctx context.Context, userID string, from, to time.Time) ([]domain.ClockSession, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+`
FROM clock_sessions
WHERE user_id = ? AND clock_in >= ? AND clock_in < ?
ORDER BY clock_in`, userID, s.ts(from), s.ts(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ClockSession
	for rows.Next() {
		cs, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cs)
	}
	return out, rows.Err()
}
