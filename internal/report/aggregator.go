// Package report accumulates stage outcomes and renders progress lines and
// the final batch summary.
package report

import (
	"sync"

	"github.com/lukashuebner/tugboat/internal/models"
)

// Aggregator counts the outcomes of one stage invocation. It is safe for
// concurrent use; counts do not depend on the order outcomes arrive in.
type Aggregator struct {
	mu       sync.Mutex
	summary  models.BatchSummary
	messages []string
}

// NewAggregator creates an empty aggregator for stage.
func NewAggregator(stage models.StageName) *Aggregator {
	return &Aggregator{summary: models.BatchSummary{Stage: stage}}
}

// Observe records one dataset outcome.
func (a *Aggregator) Observe(o models.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.summary.Total++
	switch o.Severity() {
	case models.SeverityOK:
		a.summary.OK++
	case models.SeverityWarning:
		a.summary.Warnings++
	case models.SeverityError:
		a.summary.Errors++
		a.summary.Failures = append(a.summary.Failures, o)
	}
}

// Warn records a warning that is not tied to a dataset outcome, such as an
// empty result file found while merging.
func (a *Aggregator) Warn(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.Warnings++
	a.messages = append(a.messages, msg)
}

// Error records an error that is not tied to a dataset outcome.
func (a *Aggregator) Error(o models.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.Errors++
	a.summary.Failures = append(a.summary.Failures, o)
}

// Summary returns a copy of the current counts.
func (a *Aggregator) Summary() models.BatchSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.summary
	s.Failures = append([]models.Outcome(nil), a.summary.Failures...)
	return s
}

// Messages returns the recorded free-form warnings.
func (a *Aggregator) Messages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.messages...)
}
