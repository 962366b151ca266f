package timesync

import "time"

// Status is the outcome of one acquisition.
type Status int

const (
	// StatusSkipped means another acquisition was already running.
	StatusSkipped Status = iota
	StatusSynced
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusSynced:
		return "synced"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports one call to Sync. Err aggregates every failed attempt
// and is only set when Status is StatusFailed.
type Result struct {
	Status   Status
	Offset   time.Duration
	SyncTime time.Time
	Source   string
	Attempts int
	Err      error
}

// OK reports whether the acquisition committed a new offset.
func (r Result) OK() bool { return r.Status == StatusSynced }

// Event is delivered to the completion callback after every successful sync.
type Event struct {
	Offset   time.Duration
	SyncTime time.Time
	Source   string
}

// OffsetMillis returns the offset as whole milliseconds.
func (e Event) OffsetMillis() int64 { return e.Offset.Milliseconds() }

// SyncFunc is called after each successful sync.
type SyncFunc func(Event)
