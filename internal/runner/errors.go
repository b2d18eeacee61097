package runner

import (
	"fmt"
	"time"
)

// SpawnError reports that the shell process could not be started at
// all. A command that starts and exits non-zero is a Result, not an
// error.
type SpawnError struct {
	Shell string // shell binary that failed to start
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn_failure: starting %s: %v", e.Shell, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Kind returns the stable wire token for this failure.
func (e *SpawnError) Kind() string { return "spawn_failure" }

// TimeoutError reports that a command exceeded its deadline and was
// forcibly terminated. Output captured before the kill is discarded.
type TimeoutError struct {
	After time.Duration // elapsed wall time when the process was killed
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: command killed after %s", e.After.Round(time.Millisecond))
}

// Kind returns the stable wire token for this failure.
func (e *TimeoutError) Kind() string { return "timeout" }

// RejectedError reports that the validation hook refused a command.
// No process is spawned for a rejected command.
type RejectedError struct {
	Err error
}

func (e *RejectedError) Error() string { return "command_rejected: " + e.Err.Error() }

func (e *RejectedError) Unwrap() error { return e.Err }

// Kind returns the stable wire token for this failure.
func (e *RejectedError) Kind() string { return "command_rejected" }
