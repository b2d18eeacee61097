// Package history keeps an audit trail of executed commands so past
// runs can be re-read after their tool responses have scrolled away.
package history

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for a run ID.
var ErrNotFound = errors.New("run not found")

// Record is one executed command with everything it produced.
type Record struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	Stdout     string    `json:"stdout"`
	Stderr     string    `json:"stderr"`
	ExitCode   int       `json:"exit_code"`
	Truncated  bool      `json:"truncated,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// Summary is the listing view of a Record: everything but the output.
type Summary struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	ExitCode   int       `json:"exit_code"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// Store persists and retrieves run records.
type Store interface {
	Save(rec *Record) error
	Load(id string) (*Record, error)
	// Recent returns up to n summaries, newest first. n <= 0 means all.
	Recent(n int) ([]Summary, error)
}

// Summarize trims a record down to its listing view. Long command lines
// are cut at 80 runes.
func (r *Record) Summarize() Summary {
	command := r.Command
	if runes := []rune(command); len(runes) > 80 {
		command = string(runes[:77]) + "..."
	}
	return Summary{
		ID:         r.ID,
		Command:    command,
		ExitCode:   r.ExitCode,
		StartedAt:  r.StartedAt,
		DurationMS: r.DurationMS,
	}
}
