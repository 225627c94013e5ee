package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/prasad758/timesheet-version-sub000/internal/domain"
	"github.com/prasad758/timesheet-version-sub000/internal/week"
)

// EnsureTimesheet finds or creates the timesheet for (userID, weekStart).
func (s *Store) EnsureTimesheet(ctx context.Context, userID string, weekStart time.Time) (*domain.Timesheet, error) {
	ws := week.StartMonday(weekStart)
	if _, err := s.db.ExecContext(ctx, s.d.ensureTimesheet,
		uuid.New().String(), userID, dateArg(ws), dateArg(week.End(ws)), s.ts(s.now())); err != nil {
		return nil, fmt.Errorf("insert timesheet: %w", err)
	}
	ts, err := s.FindTimesheet(ctx, userID, ws)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, fmt.Errorf("timesheet for %s week %s vanished after insert", userID, week.FormatDate(ws))
	}
	return ts, nil
}

// FindTimesheet returns nil when no timesheet exists for the week.
func (s *Store) FindTimesheet(ctx context.Context, userID string, weekStart time.Time) (*domain.Timesheet, error) {
	var (
		ts       domain.Timesheet
		from, to dateValue
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, user_id, week_start, week_end, status
FROM timesheets
WHERE user_id = ? AND week_start = ?`, userID, dateArg(weekStart)).
		Scan(&ts.ID, &ts.UserID, &from, &to, &ts.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ts.WeekStart = week.Rebase(from.date(), weekStart.Location())
	ts.WeekEnd = week.Rebase(to.date(), weekStart.Location())
	return &ts, nil
}

func (s *Store) SetTimesheetStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE timesheets SET status = ? WHERE id = ?`, status, id)
	return err
}

// ListEntries returns the persisted rows of a timesheet.
func (s *Store) ListEntries(ctx context.Context, timesheetID string) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, timesheet_id, project, task, source,
       mon_hours, tue_hours, wed_hours, thu_hours, fri_hours, sat_hours, sun_hours
FROM timesheet_entries
WHERE timesheet_id = ?
ORDER BY source, project, task, id`, timesheetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		var (
			e   domain.Entry
			src string
		)
		if err := rows.Scan(&e.ID, &e.TimesheetID, &e.Project, &e.Task, &src,
			&e.Hours[week.Mon], &e.Hours[week.Tue], &e.Hours[week.Wed], &e.Hours[week.Thu],
			&e.Hours[week.Fri], &e.Hours[week.Sat], &e.Hours[week.Sun]); err != nil {
			return nil, err
		}
		e.Source = domain.EntrySource(src)
		out = append(out, e)
	}
	return out, rows.Err()
}

// AddClockHours upserts the time_clock row for key, adding hours to day.
func (s *Store) AddClockHours(ctx context.Context, timesheetID string, key domain.Key, day week.Day, hours float64) error {
	var cells [7]float64
	cells[day] = hours
	args := []any{uuid.New().String(), timesheetID, key.Project, key.Task}
	for _, h := range cells {
		args = append(args, h)
	}
	if _, err := s.db.ExecContext(ctx, s.d.addClockHours, args...); err != nil {
		return err
	}
	return nil
}

// ReplaceManualEntries swaps the manual rows of a timesheet in one transaction.
func (s *Store) ReplaceManualEntries(ctx context.Context, timesheetID string, entries []domain.Entry) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM timesheet_entries WHERE timesheet_id = ? AND source = 'manual'`, timesheetID); err != nil {
		tx.Rollback()
		return err
	}

	const q = `
INSERT INTO timesheet_entries
  (id, timesheet_id, project, task, source, mon_hours, tue_hours, wed_hours, thu_hours, fri_hours, sat_hours, sun_hours)
VALUES
  (?, ?, ?, ?, 'manual', ?, ?, ?, ?, ?, ?, ?);
`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		h := e.Hours
		if _, err := stmt.ExecContext(ctx, uuid.New().String(), timesheetID, e.Project, e.Task,
			h[0], h[1], h[2], h[3], h[4], h[5], h[6]); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Debug("manual entries replaced", slog.String("timesheet", timesheetID), slog.Int("count", len(entries)))
	return nil
}
