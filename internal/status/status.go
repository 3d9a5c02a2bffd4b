// Package status carries the run's user-visible feedback: the status line,
// the panel headline and the sent/canceled/remaining counters.
package status

import (
	"sync"

	"github.com/yourusername/linkedin-connect/internal/logger"
)

// Counts are the panel counters
type Counts struct {
	Sent      int
	Canceled  int
	Remaining int
}

// Reporter receives status updates from the control loop
type Reporter interface {
	// Status is the running commentary (console log and panel)
	Status(msg string)
	// PanelStatus replaces the panel's headline, e.g. "Processing..."
	PanelStatus(msg string)
	Counts(c Counts)
}

// LogReporter writes updates to the structured log
type LogReporter struct{}

func (LogReporter) Status(msg string) {
	logger.Info(msg)
}

func (LogReporter) PanelStatus(msg string) {
	logger.Debug("Panel status", "status", msg)
}

func (LogReporter) Counts(c Counts) {
	logger.Debug("Counts updated", "sent", c.Sent, "canceled", c.Canceled, "remaining", c.Remaining)
}

// Multi fans updates out to several reporters
type Multi []Reporter

func (m Multi) Status(msg string) {
	for _, r := range m {
		r.Status(msg)
	}
}

func (m Multi) PanelStatus(msg string) {
	for _, r := range m {
		r.PanelStatus(msg)
	}
}

func (m Multi) Counts(c Counts) {
	for _, r := range m {
		r.Counts(c)
	}
}

// Recorder keeps every update in memory
type Recorder struct {
	mu       sync.Mutex
	statuses []string
	panel    []string
	counts   []Counts
}

func (r *Recorder) Status(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, msg)
}

func (r *Recorder) PanelStatus(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panel = append(r.panel, msg)
}

func (r *Recorder) Counts(c Counts) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = append(r.counts, c)
}

// Statuses returns the recorded status lines
func (r *Recorder) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

// PanelStatuses returns the recorded panel headlines
func (r *Recorder) PanelStatuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.panel...)
}

// LastCounts returns the most recent counters
func (r *Recorder) LastCounts() (Counts, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.counts) == 0 {
		return Counts{}, false
	}
	return r.counts[len(r.counts)-1], true
}

// Relay forwards to a reporter set after construction, so the panel mounted
// after the controller still receives its updates. Until Set is called
// updates go to the log.
type Relay struct {
	mu     sync.RWMutex
	target Reporter
}

// Set replaces the forwarding target
func (r *Relay) Set(target Reporter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.target = target
}

func (r *Relay) current() Reporter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.target == nil {
		return LogReporter{}
	}
	return r.target
}

func (r *Relay) Status(msg string) {
	r.current().Status(msg)
}

func (r *Relay) PanelStatus(msg string) {
	r.current().PanelStatus(msg)
}

func (r *Relay) Counts(c Counts) {
	r.current().Counts(c)
}
