package domain

import "time"

// Result summarizes one archive run.
type Result struct {
	State          State     `json:"state"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at,omitzero"`
	Batches        int       `json:"batches"`
	Delivered      int       `json:"delivered"`
	Skipped        int       `json:"skipped"`
	LastArchivedID int64     `json:"last_archived_id"`
	TotalProcessed int64     `json:"total_processed"`
	Error          string    `json:"error,omitempty"`
}

// Terminal reports whether the run has ended.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateInterrupted || s == StateFatal
}
