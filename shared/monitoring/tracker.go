package monitoring

import (
	"log"
	"sync"
	"time"
)

// RunState is the orchestrator's lifecycle state for the current run.
type RunState string

const (
	StateStarting       RunState = "starting"
	StateFetchingRows   RunState = "fetching-rows"
	StateProcessingRows RunState = "processing-rows"
	StateCompleted      RunState = "completed"
	StateError          RunState = "error"
	StateStopped        RunState = "stopped"
)

// maxErrors bounds the in-memory error list; the oldest entries are dropped
// once the cap is reached so a long-running process cannot grow without
// limit.
const maxErrors = 100

// Tracker holds the process-lifetime counters and run state read by the
// status endpoint. It is the only mutable state shared between the run loop
// and the HTTP server, so every access goes through the mutex.
type Tracker struct {
	mu sync.RWMutex

	state           RunState
	message         string
	rowsProcessed   int
	rowsSkipped     int
	successfulPosts int
	failedPosts     int
	perPlatform     map[string]*PlatformCounters
	errors          []string
	lastRunTime     time.Time
	lastRunSuccess  bool
}

type PlatformCounters struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Snapshot is a point-in-time copy of the tracker, safe to serialize.
type Snapshot struct {
	State           RunState                     `json:"state"`
	Message         string                       `json:"message,omitempty"`
	RowsProcessed   int                          `json:"rows_processed"`
	RowsSkipped     int                          `json:"rows_skipped"`
	SuccessfulPosts int                          `json:"successful_posts"`
	FailedPosts     int                          `json:"failed_posts"`
	Platforms       map[string]PlatformCounters  `json:"platform_counters"`
	Errors          []string                     `json:"errors"`
	LastRunTime     time.Time                    `json:"last_run_time,omitzero"`
}

func NewTracker() *Tracker {
	return &Tracker{
		state:       StateStarting,
		perPlatform: make(map[string]*PlatformCounters),
	}
}

// SetState transitions the run state and records an optional status message.
func (t *Tracker) SetState(state RunState, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	t.message = message
}

func (t *Tracker) State() RunState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Tracker) IncrementRowsProcessed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rowsProcessed++
}

func (t *Tracker) IncrementRowsSkipped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rowsSkipped++
}

func (t *Tracker) IncrementSuccessfulPost(platform string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successfulPosts++
	t.platformCounters(platform).Successful++
}

func (t *Tracker) IncrementFailedPost(platform string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failedPosts++
	t.platformCounters(platform).Failed++
}

// platformCounters must be called with the lock held.
func (t *Tracker) platformCounters(platform string) *PlatformCounters {
	c, ok := t.perPlatform[platform]
	if !ok {
		c = &PlatformCounters{}
		t.perPlatform[platform] = c
	}
	return c
}

// AddError appends to the bounded error list.
func (t *Tracker) AddError(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = append(t.errors, message)
	if len(t.errors) > maxErrors {
		t.errors = t.errors[len(t.errors)-maxErrors:]
	}
}

func (t *Tracker) RecordSuccess(summary string, duration time.Duration) {
	t.mu.Lock()
	t.lastRunSuccess = true
	t.lastRunTime = time.Now()
	t.mu.Unlock()

	log.Printf("Run completed successfully - %s (took %v)", summary, duration)
}

func (t *Tracker) RecordFailure(err error, duration time.Duration) {
	t.mu.Lock()
	t.lastRunSuccess = false
	t.lastRunTime = time.Now()
	t.mu.Unlock()

	log.Printf("Run failed: %v (took %v)", err, duration)
}

// IsHealthy reports liveness for the health endpoint. A process that has
// not run yet is considered healthy.
func (t *Tracker) IsHealthy() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.lastRunTime.IsZero() {
		return true
	}
	return t.lastRunSuccess
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	platforms := make(map[string]PlatformCounters, len(t.perPlatform))
	for name, c := range t.perPlatform {
		platforms[name] = *c
	}
	errs := make([]string, len(t.errors))
	copy(errs, t.errors)

	return Snapshot{
		State:           t.state,
		Message:         t.message,
		RowsProcessed:   t.rowsProcessed,
		RowsSkipped:     t.rowsSkipped,
		SuccessfulPosts: t.successfulPosts,
		FailedPosts:     t.failedPosts,
		Platforms:       platforms,
		Errors:          errs,
		LastRunTime:     t.lastRunTime,
	}
}
