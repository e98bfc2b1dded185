package pipeline

import (
	"fmt"
	"time"
)

// ProgressTracker tracks progress of a long-running batch by element count.
type ProgressTracker struct {
	total       int64
	startTime   time.Time
	description string
}

// NewProgressTracker creates a tracker. total may be 0 when the element
// count is not known upfront.
func NewProgressTracker(total int64, description string) *ProgressTracker {
	return &ProgressTracker{
		total:       total,
		startTime:   time.Now(),
		description: description,
	}
}

// Progress holds current progress information.
type Progress struct {
	Current     int64
	Total       int64
	Percentage  float64
	Elapsed     time.Duration
	ETA         time.Duration
	Throughput  float64 // elements per second
	Description string
}

// Calculate returns current progress metrics for the given element count.
func (p *ProgressTracker) Calculate(current int64) Progress {
	elapsed := time.Since(p.startTime)

	var percentage float64
	var eta time.Duration
	if p.total > 0 && current > 0 {
		percentage = float64(current) / float64(p.total) * 100
		perSecond := float64(current) / elapsed.Seconds()
		if perSecond > 0 && current < p.total {
			eta = time.Duration(float64(p.total-current)/perSecond) * time.Second
		}
	}

	var throughput float64
	if elapsed.Seconds() > 0 {
		throughput = float64(current) / elapsed.Seconds()
	}

	return Progress{
		Current:     current,
		Total:       p.total,
		Percentage:  percentage,
		Elapsed:     elapsed.Round(time.Second),
		ETA:         eta.Round(time.Second),
		Throughput:  throughput,
		Description: p.description,
	}
}

// FormatThroughput formats throughput as human-readable elements per second.
func FormatThroughput(itemsPerSec float64) string {
	if itemsPerSec >= 1_000_000 {
		return fmt.Sprintf("%.1fM/s", itemsPerSec/1_000_000)
	}
	if itemsPerSec >= 1_000 {
		return fmt.Sprintf("%.1fK/s", itemsPerSec/1_000)
	}
	return fmt.Sprintf("%.0f/s", itemsPerSec)
}
