package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/Guizzs26/attendance_poll_bot/internal/model"
	"github.com/Guizzs26/attendance_poll_bot/internal/tally"
)

// ChartRenderer draws the tally as a bar chart PNG at a fixed path. Every
// configured category gets a bar, in order, zero when it has no votes.
type ChartRenderer struct {
	path       string
	categories []model.Category
}

func NewChartRenderer(path string, categories []model.Category) *ChartRenderer {
	return &ChartRenderer{
		path:       path,
		categories: append([]model.Category(nil), categories...),
	}
}

func (r *ChartRenderer) Path() string { return r.path }

// Render overwrites the artifact and returns its path.
func (r *ChartRenderer) Render(snap tally.Snapshot) (string, error) {
	graph := r.chart(snap)

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create chart dir: %w", err)
		}
	}

	f, err := os.Create(r.path)
	if err != nil {
		return "", fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()

	if err := graph.Render(chart.PNG, f); err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close chart file: %w", err)
	}
	return r.path, nil
}

func (r *ChartRenderer) chart(snap tally.Snapshot) chart.BarChart {
	bars := make([]chart.Value, 0, len(r.categories))
	lo, hi := 0, 1
	for _, c := range r.categories {
		n := snap[c]
		lo, hi = min(lo, n), max(hi, n)
		bars = append(bars, chart.Value{Label: string(c), Value: float64(n)})
	}

	return chart.BarChart{
		Title:      "Attendance results",
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		Width:      1000,
		Height:     500,
		BarWidth:   80,
		// An explicit range keeps an all-zero tally drawable.
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: float64(lo), Max: float64(hi)},
		},
		Bars: bars,
	}
}
