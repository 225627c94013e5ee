package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/prasad758/timesheet-version-sub000/internal/domain"
)

const leaveColumns = `id, user_id, leave_type, reason, start_date, end_date, status, decided_by, decided_at, created_at`

func scanLeave(r rowScanner) (*domain.LeaveRequest, error) {
	var (
		l                  domain.LeaveRequest
		start, end         dateValue
		decidedAt, created timeValue
	)
	if err := r.Scan(&l.ID, &l.UserID, &l.LeaveType, &l.Reason, &start, &end,
		&l.Status, &l.DecidedBy, &decidedAt, &created); err != nil {
		return nil, err
	}
	l.StartDate = start.date()
	l.EndDate = end.date()
	l.DecidedAt = decidedAt.ptr()
	l.CreatedAt = created.Time
	return &l, nil
}

func (s *Store) CreateLeave(ctx context.Context, l *domain.LeaveRequest) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO leave_requests
  (id, user_id, leave_type, reason, start_date, end_date, status, decided_by, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, '', ?)`,
		l.ID, l.UserID, l.LeaveType, l.Reason, dateArg(l.StartDate), dateArg(l.EndDate), l.Status, s.ts(l.CreatedAt))
	return err
}

func (s *Store) GetLeave(ctx context.Context, id string) (*domain.LeaveRequest, error) {
	l, err := scanLeave(s.db.QueryRowContext(ctx, `SELECT `+leaveColumns+` FROM leave_requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return l, err
}

// DecideLeave moves a pending request to status. It reports domain.ErrNotFound
// when the request is missing or no longer pending.
func (s *Store) DecideLeave(ctx context.Context, id, status, decidedBy string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE leave_requests
SET status = ?, decided_by = ?, decided_at = ?
WHERE id = ? AND status = 'pending'`, status, decidedBy, s.ts(at), id)
	if err != nil {
		return err
	}
	return expectRow(res, domain.ErrNotFound)
}

func (s *Store) ListLeave(ctx context.Context, userID string) ([]domain.LeaveRequest, error) {
	return s.queryLeave(ctx, `SELECT `+leaveColumns+`
FROM leave_requests
WHERE user_id = ?
ORDER BY start_date DESC, created_at DESC`, userID)
}

// ListApprovedLeave returns approved requests overlapping the inclusive range.
func (s *Store) ListApprovedLeave(ctx context.Context, userID string, from, to time.Time) ([]domain.LeaveRequest, error) {
	return s.queryLeave(ctx, `SELECT `+leaveColumns+`
FROM leave_requests
WHERE user_id = ? AND status = 'approved' AND start_date <= ? AND end_date >= ?
ORDER BY start_date, id`, userID, dateArg(to), dateArg(from))
}

func (s *Store) queryLeave(ctx context.Context, q string, args ...any) ([]domain.LeaveRequest, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LeaveRequest
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}
