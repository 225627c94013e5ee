package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/prasad758/timesheet-version-sub000/internal/domain"
	"github.com/prasad758/timesheet-version-sub000/internal/week"
)

// Fallback labels used when a session names no project or issue.
const (
	DefaultProject = "General"
	DefaultTask    = "General Work"
	LeaveProject   = "Leave"
)

// IssueTask is the task label used for an issue whose title is unknown.
func IssueTask(id int64) string { return fmt.Sprintf("Issue #%d", id) }

// IssueKey labels an external work item. fallbackProject is used when the
// tracker reports no project name.
func IssueKey(item domain.WorkItem, fallbackProject string) domain.Key {
	k := domain.Key{Project: strings.TrimSpace(item.ProjectName), Task: strings.TrimSpace(item.Title)}
	if k.Project == "" {
		k.Project = fallbackProject
	}
	if k.Project == "" {
		k.Project = DefaultProject
	}
	if k.Task == "" {
		k.Task = IssueTask(item.ID)
	}
	return k
}

// LeaveTask renders "<TYPE> - <reason>", or just "<TYPE>" without a reason.
func LeaveTask(l domain.LeaveRequest) string {
	t := strings.ToUpper(strings.TrimSpace(l.LeaveType))
	if r := strings.TrimSpace(l.Reason); r != "" {
		return t + " - " + r
	}
	return t
}

// DeriveLeaveEntries projects approved leave onto the week [weekStart, weekEnd].
// Each leave day inside the week gets LeaveHoursPerDay in its column; days
// outside the week are ignored, so a leave spanning two weeks contributes to
// each week independently. Requests with the same label share one row.
// The result is computed fresh and never stored.
func DeriveLeaveEntries(leaves []domain.LeaveRequest, weekStart, weekEnd time.Time) []domain.Entry {
	loc := weekStart.Location()
	ws, we := week.Midnight(weekStart), week.Midnight(weekEnd)

	var out []domain.Entry
	index := make(map[domain.Key]int)
	for _, l := range leaves {
		from := week.Rebase(l.StartDate, loc)
		to := week.Rebase(l.EndDate, loc)
		if from.Before(ws) {
			from = ws
		}
		if to.After(we) {
			to = we
		}
		if from.After(to) {
			continue
		}

		key := domain.Key{Project: LeaveProject, Task: LeaveTask(l)}
		i, ok := index[key]
		if !ok {
			out = append(out, domain.Entry{Project: key.Project, Task: key.Task, Source: domain.SourceLeave})
			i = len(out) - 1
			index[key] = i
		}
		for _, d := range week.DaysBetween(from, to) {
			out[i].Set(week.DayColumn(d), LeaveHoursPerDay)
		}
	}
	return out
}

// DeriveAssignedPlaceholders returns a zero-hour editable row for every open
// work item whose key is not in covered. covered is not modified.
func DeriveAssignedPlaceholders(items []domain.WorkItem, covered map[domain.Key]bool) []domain.Entry {
	seen := make(map[domain.Key]bool, len(covered))
	for k, v := range covered {
		seen[k] = v
	}
	var out []domain.Entry
	for _, it := range items {
		if !it.IsOpen() {
			continue
		}
		key := IssueKey(it, DefaultProject)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, domain.Entry{
			Project:     key.Project,
			Task:        key.Task,
			Source:      domain.SourceManual,
			Placeholder: true,
		})
	}
	return out
}
