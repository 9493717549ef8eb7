package model

import (
	"strings"
	"time"
)

// Category is one selectable poll option, a weekday label in this deployment.
type Category string

// DefaultCategories is the ordered set of options offered by the poll prompt.
var DefaultCategories = []Category{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// ParseCategories turns a list of labels into categories, dropping blanks and
// repeats while keeping the original order. Labels that differ only in case are
// repeats: button action ids are derived from the lowercased label.
func ParseCategories(labels []string) []Category {
	seen := make(map[string]bool, len(labels))
	out := make([]Category, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		key := strings.ToLower(l)
		if l == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Category(l))
	}
	return out
}

type EventKind string

const (
	EventSelected EventKind = "selected"
	EventCleared  EventKind = "cleared"
	EventReset    EventKind = "reset"
)

// VoteEvent describes one accepted mutation of the tally. Cleared events carry
// every category the voter held at the time of the clear.
type VoteEvent struct {
	ID         string     `json:"id"`
	Kind       EventKind  `json:"kind"`
	UserID     string     `json:"user_id,omitempty"`
	Categories []Category `json:"categories,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}
