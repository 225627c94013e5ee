package app

import (
	"time"

	"github.com/prasad758/timesheet-version-sub000/internal/domain"
	"github.com/prasad758/timesheet-version-sub000/internal/usecase"
	"github.com/prasad758/timesheet-version-sub000/internal/week"
)

type sessionDTO struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	IssueID     *int64     `json:"issue_id"`
	ProjectName string     `json:"project_name"`
	ClockIn     time.Time  `json:"clock_in"`
	ClockOut    *time.Time `json:"clock_out"`
	Status      string     `json:"status"`
	PauseStart  *time.Time `json:"pause_start"`
	PauseReason string     `json:"pause_reason,omitempty"`
	PausedHours float64    `json:"paused_hours"`
	TotalHours  *float64   `json:"total_hours"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	Address     string     `json:"address,omitempty"`
	// WorkedHours is the running total, reported for open sessions only.
	WorkedHours *float64 `json:"worked_hours,omitempty"`
}

func toSessionDTO(s *domain.ClockSession, now time.Time) *sessionDTO {
	if s == nil {
		return nil
	}
	d := &sessionDTO{
		ID:          s.ID,
		UserID:      s.UserID,
		IssueID:     s.IssueID,
		ProjectName: s.ProjectName,
		ClockIn:     s.ClockIn,
		ClockOut:    s.ClockOut,
		Status:      string(s.Status),
		PauseStart:  s.PauseStart,
		PauseReason: s.PauseReason,
		PausedHours: usecase.Round2(s.PausedHours),
		TotalHours:  s.TotalHours,
		Latitude:    s.Location.Latitude,
		Longitude:   s.Location.Longitude,
		Address:     s.Location.Address,
	}
	if s.Active() {
		h := usecase.Round2(max(s.WorkedHours(now), 0))
		d.WorkedHours = &h
	}
	return d
}

type clockInRequest struct {
	IssueID     *int64   `json:"issue_id"`
	ProjectName string   `json:"project_name"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Address     string   `json:"address"`
}

type pauseRequest struct {
	Reason string `json:"reason"`
}

type clockOutRequest struct {
	Comment string `json:"comment"`
}

type clockOutResponse struct {
	Session          *sessionDTO `json:"session"`
	TotalHours       float64     `json:"total_hours"`
	TimesheetUpdated bool        `json:"timesheet_updated"`
}

type entryDTO struct {
	ID          string  `json:"id,omitempty"`
	Project     string  `json:"project"`
	Task        string  `json:"task"`
	Source      string  `json:"source"`
	MonHours    float64 `json:"mon_hours"`
	TueHours    float64 `json:"tue_hours"`
	WedHours    float64 `json:"wed_hours"`
	ThuHours    float64 `json:"thu_hours"`
	FriHours    float64 `json:"fri_hours"`
	SatHours    float64 `json:"sat_hours"`
	SunHours    float64 `json:"sun_hours"`
	TotalHours  float64 `json:"total_hours"`
	ReadOnly    bool    `json:"read_only"`
	Placeholder bool    `json:"placeholder"`
}

func (d *entryDTO) days() []*float64 {
	return []*float64{&d.MonHours, &d.TueHours, &d.WedHours, &d.ThuHours, &d.FriHours, &d.SatHours, &d.SunHours}
}

func toEntryDTO(e domain.Entry) entryDTO {
	d := entryDTO{
		ID:          e.ID,
		Project:     e.Project,
		Task:        e.Task,
		Source:      string(e.Source),
		TotalHours:  usecase.Round2(e.Total()),
		ReadOnly:    e.ReadOnly(),
		Placeholder: e.Placeholder,
	}
	for i, p := range d.days() {
		*p = e.Hours[i]
	}
	return d
}

func (d entryDTO) toDomain() domain.Entry {
	e := domain.Entry{Project: d.Project, Task: d.Task, Source: domain.EntrySource(d.Source)}
	for i, p := range d.days() {
		e.Hours[week.Day(i)] = *p
	}
	return e
}

type weekDTO struct {
	TimesheetID string     `json:"timesheet_id,omitempty"`
	UserID      string     `json:"user_id"`
	WeekStart   string     `json:"week_start"`
	WeekEnd     string     `json:"week_end"`
	Status      string     `json:"status"`
	TotalHours  float64    `json:"total_hours"`
	Entries     []entryDTO `json:"entries"`
}

func toWeekDTO(v *domain.WeekView) weekDTO {
	d := weekDTO{
		TimesheetID: v.Timesheet.ID,
		UserID:      v.Timesheet.UserID,
		WeekStart:   week.FormatDate(v.Timesheet.WeekStart),
		WeekEnd:     week.FormatDate(v.Timesheet.WeekEnd),
		Status:      v.Timesheet.Status,
		Entries:     make([]entryDTO, 0, len(v.Entries)),
	}
	var total float64
	for _, e := range v.Entries {
		d.Entries = append(d.Entries, toEntryDTO(e))
		total += e.Total()
	}
	d.TotalHours = usecase.Round2(total)
	return d
}

type saveWeekRequest struct {
	WeekStart string     `json:"week_start"`
	UserID    string     `json:"user_id"`
	Entries   []entryDTO `json:"entries"`
}

type saveWeekResponse struct {
	TimesheetID  string `json:"timesheet_id"`
	EntriesSaved int    `json:"entries_saved"`
}

type submitWeekRequest struct {
	WeekStart string `json:"week_start"`
	UserID    string `json:"user_id"`
}

type leaveDTO struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	LeaveType string     `json:"leave_type"`
	Reason    string     `json:"reason"`
	StartDate string     `json:"start_date"`
	EndDate   string     `json:"end_date"`
	Status    string     `json:"status"`
	DecidedBy string     `json:"decided_by,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func toLeaveDTO(l *domain.LeaveRequest) leaveDTO {
	return leaveDTO{
		ID:        l.ID,
		UserID:    l.UserID,
		LeaveType: l.LeaveType,
		Reason:    l.Reason,
		StartDate: week.FormatDate(l.StartDate),
		EndDate:   week.FormatDate(l.EndDate),
		Status:    l.Status,
		DecidedBy: l.DecidedBy,
		DecidedAt: l.DecidedAt,
		CreatedAt: l.CreatedAt,
	}
}

type leaveRequest struct {
	LeaveType string `json:"leave_type"`
	Reason    string `json:"reason"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}
