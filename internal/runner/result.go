package runner

import "time"

// Result holds the outcome of a completed command execution. Any exit
// code, zero or not, produces a Result; errors are reserved for runs
// that never produced one.
type Result struct {
	RunID     string        // unique identifier for this run
	Command   string        // the command line as received
	Stdout    string        // captured stdout, invalid UTF-8 replaced
	Stderr    string        // captured stderr, invalid UTF-8 replaced
	ExitCode  int           // process exit status
	Truncated bool          // true if either stream exceeded the size cap
	Duration  time.Duration // wall time from spawn to exit
}
