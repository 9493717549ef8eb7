package tally

import (
	"errors"
	"sync"

	"github.com/Guizzs26/attendance_poll_bot/internal/model"
)

var ErrUnknownCategory = errors.New("unknown category")

type Outcome int

const (
	Recorded Outcome = iota
	AlreadySelected
	Cleared
	NothingToClear
)

func (o Outcome) String() string {
	switch o {
	case Recorded:
		return "recorded"
	case AlreadySelected:
		return "already_selected"
	case Cleared:
		return "cleared"
	case NothingToClear:
		return "nothing_to_clear"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of the per-category counts.
type Snapshot map[model.Category]int

// Total sums every count in the snapshot.
func (s Snapshot) Total() int {
	var n int
	for _, c := range s {
		n += c
	}
	return n
}

// Store holds the per-category counts and the per-voter selections of the open
// poll cycle. Both maps are only ever touched together under mu, so a voter's
// selection set always matches what is counted for them.
type Store struct {
	categories []model.Category
	known      map[model.Category]bool

	mu         sync.Mutex
	counts     map[model.Category]int                 // Structure : [category] -> count
	selections map[string]map[model.Category]struct{} // Structure : [voterID][category]
}

func NewStore(categories []model.Category) *Store {
	known := make(map[model.Category]bool, len(categories))
	for _, c := range categories {
		known[c] = true
	}
	return &Store{
		categories: append([]model.Category(nil), categories...),
		known:      known,
		counts:     make(map[model.Category]int),
		selections: make(map[string]map[model.Category]struct{}),
	}
}

// Categories returns the ordered categories the store accepts.
func (s *Store) Categories() []model.Category {
	return append([]model.Category(nil), s.categories...)
}

// Select records category for voter unless the voter already holds it.
func (s *Store) Select(voterID string, category model.Category) (Outcome, error) {
	if !s.known[category] {
		return 0, ErrUnknownCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	held, ok := s.selections[voterID]
	if !ok {
		held = make(map[model.Category]struct{})
		s.selections[voterID] = held
	}
	if _, dup := held[category]; dup {
		return AlreadySelected, nil
	}

	held[category] = struct{}{}
	s.counts[category]++
	return Recorded, nil
}

// Clear withdraws every selection held by voter and returns the categories that
// were withdrawn, in category order.
func (s *Store) Clear(voterID string) (Outcome, []model.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()

	held := s.selections[voterID]
	if len(held) == 0 {
		return NothingToClear, nil
	}

	removed := s.ordered(held)
	for _, c := range removed {
		s.counts[c]--
	}
	delete(s.selections, voterID)
	return Cleared, removed
}

// Selections returns the categories voter currently holds, in category order.
func (s *Store) Selections(voterID string) []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ordered(s.selections[voterID])
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := make(Snapshot, len(s.counts))
	for c, n := range s.counts {
		snap[c] = n
	}
	return snap
}

// Reset drops every count and selection. It is a hard reset used at the end of
// a poll cycle, not a reconciliation.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts = make(map[model.Category]int)
	s.selections = make(map[string]map[model.Category]struct{})
}

// ordered must be called with mu held.
func (s *Store) ordered(held map[model.Category]struct{}) []model.Category {
	if len(held) == 0 {
		return nil
	}
	out := make([]model.Category, 0, len(held))
	for _, c := range s.categories {
		if _, ok := held[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
