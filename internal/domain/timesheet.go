package domain

import (
	"time"

	"github.com/prasad758/timesheet-version-sub000/internal/week"
)

// Timesheet workflow tags. They are informational only.
const (
	TimesheetDraft     = "draft"
	TimesheetSubmitted = "submitted"
)

// Timesheet is the (user, week) header row. WeekStart is always a Monday.
type Timesheet struct {
	ID        string
	UserID    string
	WeekStart time.Time
	WeekEnd   time.Time
	Status    string
}

// EntrySource partitions timesheet rows by the subsystem allowed to write them.
type EntrySource string

const (
	SourceManual    EntrySource = "manual"
	SourceTimeClock EntrySource = "time_clock"
	SourceLeave     EntrySource = "leave"
)

// Valid reports whether s is a known source.
func (s EntrySource) Valid() bool {
	switch s {
	case SourceManual, SourceTimeClock, SourceLeave:
		return true
	}
	return false
}

// Entry is one project/task row of a weekly timesheet.
type Entry struct {
	ID          string
	TimesheetID string
	Project     string
	Task        string
	Source      EntrySource
	Hours       [7]float64 // indexed by week.Day
	// Placeholder marks a zero-hour row offered for an assigned work item.
	Placeholder bool
}

// Key identifies the (project, task) pair an entry books time against.
type Key struct {
	Project string
	Task    string
}

func (e *Entry) Key() Key { return Key{Project: e.Project, Task: e.Task} }

// ReadOnly reports whether the entry may not be edited through a manual save.
func (e *Entry) ReadOnly() bool { return e.Source != SourceManual }

// Total returns the sum of the seven day cells.
func (e *Entry) Total() float64 {
	var sum float64
	for _, h := range e.Hours {
		sum += h
	}
	return sum
}

// HasHours reports whether any day cell is positive.
func (e *Entry) HasHours() bool {
	for _, h := range e.Hours {
		if h > 0 {
			return true
		}
	}
	return false
}

// Set stores h in the given day cell.
func (e *Entry) Set(d week.Day, h float64) { e.Hours[d] = h }

// WeekView is the merged read model for one user-week.
type WeekView struct {
	Timesheet Timesheet
	Entries   []Entry
}
