package newsgrab

import (
	"context"
	"time"
)

// RunStatus is the lifecycle state of a source run.
type RunStatus string

// Run statuses.
const (
	RunIdle      RunStatus = "idle"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunError     RunStatus = "error"
)

// Done reports whether the status is terminal.
func (s RunStatus) Done() bool {
	return s == RunCompleted || s == RunError
}

// RunState is the progress of the current or latest run of one source.
// A run owns its RunState and publishes copies of it; observers never
// mutate it.
type RunState struct {
	Source            string     `json:"source"`
	Status            RunStatus  `json:"status"`
	Progress          int        `json:"progress"`
	ArticlesFound     int        `json:"articlesFound"`
	ArticlesProcessed int        `json:"articlesProcessed"`
	Succeeded         int        `json:"succeeded"`
	Failed            int        `json:"failed"`
	StartTime         time.Time  `json:"startTime"`
	EndTime           *time.Time `json:"endTime,omitempty"`
	Error             string     `json:"error,omitempty"`
}

// Advance raises progress to p. Progress never moves backwards and is
// capped at 100.
func (s *RunState) Advance(p int) {
	if p > 100 {
		p = 100
	}
	if p > s.Progress {
		s.Progress = p
	}
}

// LogEntry is one line of a run's human-readable trail.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Source  string    `json:"source"`
	Message string    `json:"message"`
}

// String formats the entry as "[15:04:05] message".
func (e LogEntry) String() string {
	return "[" + e.Time.Format(time.TimeOnly) + "] " + e.Message
}

// RunSummary describes the last completed batch.
type RunSummary struct {
	Time          time.Time      `json:"time"`
	TotalArticles int            `json:"totalArticles"`
	Sources       map[string]int `json:"sources"`
}

// RunTracker receives run state from running sources.
type RunTracker interface {
	// Begin registers a new run for source, replacing its previous state.
	// Returns ECONFLICT if the source is already running.
	Begin(source string) (Run, error)

	// Summarize records the summary of a completed batch.
	Summarize(summary RunSummary)
}

// Run is the publishing handle of one source run.
type Run interface {
	// Publish hands a copy of the run's state to observers. Publishing a
	// terminal status ends the run.
	Publish(state RunState)

	// Log appends a line to the run's trail.
	Log(message string)
}

// RunRecord is a persisted summary of a finished source run.
type RunRecord struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Status     RunStatus `json:"status"`
	Found      int       `json:"found"`
	Processed  int       `json:"processed"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// RunService represents a service for persisting run history.
type RunService interface {
	// CreateRun stores a finished run.
	CreateRun(ctx context.Context, run *RunRecord) error

	// FindRuns retrieves runs matching the filter, newest first.
	FindRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error)
}

// RunFilter represents a filter for FindRuns.
type RunFilter struct {
	Source *string `json:"source"`

	Limit int `json:"limit"`
}
