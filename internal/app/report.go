package app

import (
	"fmt"
	"time"
)

// RunReport is the JSON body returned to the trigger caller. The errors
// array is the operator-facing audit trail; a populated array with
// Success=true is the normal shape for a multi-tenant run where a few
// customers' tokens have expired.
type RunReport struct {
	Success            bool     `json:"success"`
	LocationsProcessed int      `json:"locationsProcessed"`
	ReviewsProcessed   int      `json:"reviewsProcessed"`
	Errors             []string `json:"errors"`
	DurationMS         int64    `json:"duration"`
	Timestamp          string   `json:"timestamp"`
	Message            string   `json:"message,omitempty"`
}

// runAggregator accumulates per-run metrics and non-fatal errors in the
// order they occurred.
type runAggregator struct {
	start     time.Time
	locations int
	reviews   int
	skipped   int
	errors    []string
}

func newRunAggregator(start time.Time) *runAggregator {
	return &runAggregator{start: start, errors: []string{}}
}

func (a *runAggregator) locationDone(reviews int)   { a.locations++; a.reviews += reviews }
func (a *runAggregator) recordSkippedRecords(n int) { a.skipped += n }

func (a *runAggregator) recordError(format string, args ...any) {
	a.errors = append(a.errors, fmt.Sprintf(format, args...))
}

func (a *runAggregator) report(success bool, message string) RunReport {
	return RunReport{
		Success:            success,
		LocationsProcessed: a.locations,
		ReviewsProcessed:   a.reviews,
		Errors:             a.errors,
		DurationMS:         time.Since(a.start).Milliseconds(),
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
		Message:            message,
	}
}
