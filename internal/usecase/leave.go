package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prasad758/timesheet-version-sub000/internal/domain"
	"github.com/prasad758/timesheet-version-sub000/internal/ports"
	"github.com/prasad758/timesheet-version-sub000/internal/week"
)

// LeaveService records leave requests and their approval.
type LeaveService struct {
	Log   *slog.Logger
	Store ports.LeaveStore
	Now   func() time.Time
}

// SubmitLeaveRequest is a new request over the inclusive range [Start, End].
type SubmitLeaveRequest struct {
	UserID    string
	LeaveType string
	Reason    string
	Start     time.Time
	End       time.Time
}

func (l *LeaveService) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Submit stores a pending leave request.
func (l *LeaveService) Submit(ctx context.Context, req SubmitLeaveRequest) (*domain.LeaveRequest, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	typ := strings.TrimSpace(req.LeaveType)
	if typ == "" {
		return nil, fmt.Errorf("%w: leave type is required", domain.ErrInvalidInput)
	}
	start, end := week.Midnight(req.Start), week.Midnight(req.End)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: leave ends before it starts", domain.ErrInvalidInput)
	}
	lr := &domain.LeaveRequest{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		LeaveType: typ,
		Reason:    strings.TrimSpace(req.Reason),
		StartDate: start,
		EndDate:   end,
		Status:    domain.LeavePending,
		CreatedAt: l.now(),
	}
	if err := l.Store.CreateLeave(ctx, lr); err != nil {
		return nil, err
	}
	l.Log.Info("leave submitted",
		slog.String("user", lr.UserID), slog.String("leave", lr.ID),
		slog.String("from", week.FormatDate(start)), slog.String("to", week.FormatDate(end)))
	return lr, nil
}

// Decide approves or rejects a pending request.
func (l *LeaveService) Decide(ctx context.Context, id string, approve bool, approverID string) (*domain.LeaveRequest, error) {
	lr, err := l.Store.GetLeave(ctx, id)
	if err != nil {
		return nil, err
	}
	if lr.Status != domain.LeavePending {
		return nil, fmt.Errorf("%w: leave request is already %s", domain.ErrInvalidInput, lr.Status)
	}
	status := domain.LeaveRejected
	if approve {
		status = domain.LeaveApproved
	}
	at := l.now()
	if err := l.Store.DecideLeave(ctx, id, status, approverID, at); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: leave request was decided concurrently", domain.ErrInvalidInput)
		}
		return nil, err
	}
	lr.Status = status
	lr.DecidedBy = approverID
	lr.DecidedAt = &at
	l.Log.Info("leave decided", slog.String("leave", id), slog.String("status", status), slog.String("by", approverID))
	return lr, nil
}

// List returns all of the user's leave requests.
func (l *LeaveService) List(ctx context.Context, userID string) ([]domain.LeaveRequest, error) {
	return l.Store.ListLeave(ctx, userID)
}
