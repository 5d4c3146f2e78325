package models

import "time"

// Run status values shared by DiscoveryRun, PipelineRun, MaintenanceRun,
// and VerificationRun.
const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// LogEntry is one line of a Run's incrementally-appended, streamable
// log. Entries are committed immediately after each append so an
// external observer can tail progress mid-run.
type LogEntry struct {
	Timestamp time.Time      `json:"ts"`
	Level     string         `json:"level"` // "info", "warn", "error"
	Message   string         `json:"msg"`
	Data      map[string]any `json:"data,omitempty"`
}

// RunCounters tracks per-run tallies (discovered/new/duplicates/errors,
// etc.). Stage-specific counters not named here can be stashed in Data
// on the relevant LogEntry.
type RunCounters struct {
	Discovered int `json:"discovered,omitempty"`
	New        int `json:"new,omitempty"`
	Duplicates int `json:"duplicates,omitempty"`
	NonUS      int `json:"non_us,omitempty"`
	Errors     int `json:"errors,omitempty"`
	Unchanged  int `json:"unchanged,omitempty"`
	Verified   int `json:"verified,omitempty"`
	Delisted   int `json:"delisted,omitempty"`
}

// Run is the shared shape behind DiscoveryRun, PipelineRun,
// MaintenanceRun, and VerificationRun. Kind distinguishes which table a
// row belongs to; Source carries the discovery source name or pipeline
// stage name depending on Kind.
type Run struct {
	ID     string `json:"id" db:"id"`
	Kind   string `json:"kind" db:"kind"` // "discovery", "pipeline", "maintenance", "verification"
	Source string `json:"source,omitempty" db:"source"`

	Status  string `json:"status" db:"status"`
	Counters RunCounters `json:"counters" db:"-"`

	CurrentStep    string `json:"current_step,omitempty" db:"current_step"`
	ProgressCount  int    `json:"progress_count" db:"progress_count"`
	ProgressTotal  *int   `json:"progress_total,omitempty" db:"progress_total"`

	Logs []LogEntry `json:"logs" db:"-"`

	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`

	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// Run kinds.
const (
	RunKindDiscovery    = "discovery"
	RunKindPipeline     = "pipeline"
	RunKindMaintenance  = "maintenance"
	RunKindVerification = "verification"
)

// IsCancelled reports whether a long-running batch loop should exit
// cleanly at its next cooperative checkpoint.
func (r *Run) IsCancelled() bool {
	return r.Status == RunStatusCancelled
}

// AppendLog appends a log line. Callers are expected to persist the Run
// immediately after calling this so observers can tail progress.
func (r *Run) AppendLog(level, msg string, data map[string]any) {
	r.Logs = append(r.Logs, LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
		Data:      data,
	})
}
