package domain

import "strings"

// WorkItem is an issue from the external tracker.
type WorkItem struct {
	ID          int64
	Title       string
	ProjectName string
	Status      string
}

// IsOpen reports whether the item is open or in progress.
func (w WorkItem) IsOpen() bool {
	switch strings.ToLower(strings.TrimSpace(w.Status)) {
	case "open", "opened", "in_progress", "in progress", "in-progress", "reopened":
		return true
	}
	return false
}
