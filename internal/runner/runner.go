// Package runner executes shell command lines in child processes and
// captures their complete output. The command string reaches the shell
// byte-for-byte; interpretation (pipes, redirection, expansion) is
// entirely the shell's.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultShell is the shell argv prefix used when Runner.Shell is
// empty. The command line is appended as the single final argument.
var DefaultShell = []string{"/bin/sh", "-c"}

// DefaultKillDelay is the grace period between SIGTERM and a forced
// kill once a run is cancelled or times out.
const DefaultKillDelay = 5 * time.Second

// Runner executes shell commands and captures stdout, stderr, and the
// exit status. The zero value runs /bin/sh -c in the current directory
// with no deadline and unlimited output capture.
type Runner struct {
	Shell     []string      // shell argv prefix, default DefaultShell
	Dir       string        // working directory, default inherited
	Timeout   time.Duration // per-run ceiling, 0 = unbounded
	KillDelay time.Duration // SIGTERM-to-kill grace, default DefaultKillDelay
	MaxOutput int           // per-stream capture cap in bytes, 0 = unlimited

	// Validate, if set, screens every command line before a process is
	// spawned. A non-nil error refuses the command.
	Validate func(command string) error

	Logger *slog.Logger
}

// Run executes command through the shell and returns the captured
// result. A caller-supplied ctx deadline acts as a per-run override of
// Timeout. Only a refused command, a spawn failure, a deadline, or
// cancellation return an error; every exit code is a Result.
func (r *Runner) Run(ctx context.Context, command string) (*Result, error) {
	if command == "" {
		return nil, fmt.Errorf("empty command")
	}
	if r.Validate != nil {
		if err := r.Validate(command); err != nil {
			return nil, &RejectedError{Err: err}
		}
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	shell := r.Shell
	if len(shell) == 0 {
		shell = DefaultShell
	}
	argv := append(append([]string(nil), shell...), command)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	// Stdin stays nil: children read EOF instead of inheriting an
	// interactive terminal.
	cmd.Stdin = nil
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = r.KillDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = DefaultKillDelay
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Shell: argv[0], Err: err}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, &SpawnError{Shell: argv[0], Err: err}
	}

	runID := uuid.New().String()
	log := r.log()
	log.Debug("executing command", "run_id", runID, "dir", cmd.Dir)

	started := time.Now()
	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &SpawnError{Shell: argv[0], Err: err}
	}

	var stdout, stderr capture
	stdout.limit = r.MaxOutput
	stderr.limit = r.MaxOutput

	// Drain both pipes at once. A child that fills one pipe while the
	// parent reads the other to EOF first would wedge both processes.
	var g errgroup.Group
	g.Go(func() error { return stdout.consume(stdoutPipe) })
	g.Go(func() error { return stderr.consume(stderrPipe) })
	drainErr := g.Wait()

	// Wait must not run until both streams hit EOF; it closes the pipes
	// underneath any reader still on them.
	waitErr := cmd.Wait()
	duration := time.Since(started)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			log.Warn("command timed out", "run_id", runID, "after", duration)
			return nil, &TimeoutError{After: duration}
		}
		return nil, ctxErr
	}
	if drainErr != nil && !errors.Is(drainErr, fs.ErrClosed) {
		log.Debug("output drain ended early", "run_id", runID, "error", drainErr)
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(waitErr, &exitErr):
			exitCode = exitErr.ExitCode()
		case errors.Is(waitErr, exec.ErrWaitDelay):
			// The process exited but something it spawned held the pipes
			// open past the grace period. Keep what was captured.
			exitCode = cmd.ProcessState.ExitCode()
		default:
			return nil, fmt.Errorf("waiting for command: %w", waitErr)
		}
	}

	log.Debug("command completed", "run_id", runID, "exit_code", exitCode, "duration", duration)

	return &Result{
		RunID:     runID,
		Command:   command,
		Stdout:    stdout.text(),
		Stderr:    stderr.text(),
		ExitCode:  exitCode,
		Truncated: stdout.truncated || stderr.truncated,
		Duration:  duration,
	}, nil
}

func (r *Runner) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// capture accumulates one output stream, discarding bytes beyond limit.
type capture struct {
	buf       bytes.Buffer
	limit     int // 0 = unlimited
	truncated bool
}

func (c *capture) consume(r io.Reader) error {
	_, err := io.Copy(c, r)
	return err
}

func (c *capture) Write(p []byte) (int, error) {
	if c.limit <= 0 {
		return c.buf.Write(p)
	}
	remaining := c.limit - c.buf.Len()
	if remaining <= 0 {
		c.truncated = true
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Keep what fits but report all bytes as consumed so io.Copy
		// does not stop with a short-write error while the child is
		// still draining.
		c.buf.Write(p[:remaining])
		c.truncated = true
		return len(p), nil
	}
	return c.buf.Write(p)
}

// text returns the captured bytes with invalid UTF-8 sequences
// replaced. Binary output never fails a run.
func (c *capture) text() string {
	return strings.ToValidUTF8(c.buf.String(), "�")
}
