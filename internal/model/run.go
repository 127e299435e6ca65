package model

import "time"

// RunOutcome classifies how a fetch cycle ended.
type RunOutcome string

const (
	RunOutcomeOK              RunOutcome = "ok"
	RunOutcomeConnectionError RunOutcome = "connection_error"
	RunOutcomeFolderError     RunOutcome = "folder_error"
)

// FetchRun is the bookkeeping record of a single fetch cycle. It records
// what happened during the cycle, never the fetched messages themselves.
type FetchRun struct {
	// ID is the unique identifier for this run.
	ID string `json:"id" db:"id"`

	// Folder is the mailbox folder the cycle listed.
	Folder string `json:"folder" db:"folder"`

	// Outcome is the cycle-level result.
	Outcome RunOutcome `json:"outcome" db:"outcome"`

	// Listed is the number of messages the folder reported.
	Listed int `json:"listed" db:"listed"`

	// Returned is the number of enriched messages handed to the caller.
	Returned int `json:"returned" db:"returned"`

	// DecodeAnomalies counts messages that decoded with degraded fields.
	DecodeAnomalies int `json:"decode_anomalies" db:"decode_anomalies"`

	// AnnotationFailures counts messages whose analysis holds an error.
	AnnotationFailures int `json:"annotation_failures" db:"annotation_failures"`

	// Error is the cycle-level error text, empty on success.
	Error string `json:"error,omitempty" db:"error"`

	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
}

// Duration returns how long the run took.
func (r FetchRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
