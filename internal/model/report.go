package model

import "time"

// Report is the closed tally of one poll cycle.
type Report struct {
	ID       string           `json:"id"`
	ClosedAt time.Time        `json:"closed_at"`
	Counts   map[Category]int `json:"counts"`
}

// Total sums every count in the report.
func (r Report) Total() int {
	var n int
	for _, c := range r.Counts {
		n += c
	}
	return n
}
