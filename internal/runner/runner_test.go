package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{
		Dir:     t.TempDir(),
		Timeout: 30 * time.Second,
	}
}

func TestRun_CapturesStdout(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), "echo hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if res.Stdout != "hello\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "hello\n")
	}
	if res.Stderr != "" {
		t.Errorf("Stderr = %q, want empty", res.Stderr)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if res.Command != "echo hello" {
		t.Errorf("Command = %q, want the command line back", res.Command)
	}
	if res.Duration <= 0 {
		t.Errorf("Duration = %v, want > 0", res.Duration)
	}
}

func TestRun_CapturesStderr(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), "echo oops 1>&2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stderr != "oops\n" {
		t.Errorf("Stderr = %q, want %q", res.Stderr, "oops\n")
	}
	if res.Stdout != "" {
		t.Errorf("Stdout = %q, want empty", res.Stdout)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
}

func TestRun_ShellInterpretation(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), "printf '%s\\n' hello | tr a-z A-Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stdout != "HELLO\n" {
		t.Errorf("Stdout = %q, want %q (pipe not interpreted?)", res.Stdout, "HELLO\n")
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), "exit 3")
	if err != nil {
		t.Fatalf("non-zero exit must not be an error, got: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestRun_CommandNotFound(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), "nonexistent-binary-xyz-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The shell reports a missing command with exit code 127; that is a
	// result, not a spawn failure.
	if res.ExitCode != 127 {
		t.Errorf("ExitCode = %d, want 127", res.ExitCode)
	}
	if !strings.Contains(res.Stderr, "nonexistent-binary-xyz-123") {
		t.Errorf("Stderr = %q, want to mention the missing command", res.Stderr)
	}
}

func TestRun_EmptyCommand(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Run(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestRun_SpawnFailure(t *testing.T) {
	r := newTestRunner(t)
	r.Shell = []string{"/nonexistent/shell-xyz", "-c"}

	_, err := r.Run(context.Background(), "echo hello")
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("error = %v, want *SpawnError", err)
	}
	if spawnErr.Shell != "/nonexistent/shell-xyz" {
		t.Errorf("Shell = %q, want the failing binary", spawnErr.Shell)
	}
	if spawnErr.Kind() != "spawn_failure" {
		t.Errorf("Kind() = %q, want %q", spawnErr.Kind(), "spawn_failure")
	}
}

func TestRun_WorkingDirectory(t *testing.T) {
	r := newTestRunner(t)
	path := filepath.Join(r.Dir, "probe.txt")
	if err := os.WriteFile(path, []byte("present\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := r.Run(context.Background(), "cat probe.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stdout != "present\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "present\n")
	}
}

func TestRun_NoInteractiveStdin(t *testing.T) {
	r := newTestRunner(t)
	// cat with no arguments copies stdin; with no terminal attached it
	// must see immediate EOF rather than hanging.
	res, err := r.Run(context.Background(), "cat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stdout != "" {
		t.Errorf("Stdout = %q, want empty", res.Stdout)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
}

func TestRun_ValidateHook(t *testing.T) {
	r := newTestRunner(t)
	r.Validate = func(command string) error {
		if strings.Contains(command, "forbidden") {
			return fmt.Errorf("refused by policy")
		}
		return nil
	}

	if _, err := r.Run(context.Background(), "echo allowed"); err != nil {
		t.Fatalf("allowed command failed: %v", err)
	}

	_, err := r.Run(context.Background(), "echo forbidden")
	var rejErr *RejectedError
	if !errors.As(err, &rejErr) {
		t.Fatalf("error = %v, want *RejectedError", err)
	}
	if !strings.Contains(rejErr.Error(), "refused by policy") {
		t.Errorf("error = %q, want the hook's reason", rejErr.Error())
	}
}

func TestRun_Timeout(t *testing.T) {
	r := newTestRunner(t)
	r.Timeout = 100 * time.Millisecond

	start := time.Now()
	_, err := r.Run(context.Background(), "sleep 10")
	elapsed := time.Since(start)

	var toErr *TimeoutError
	if !errors.As(err, &toErr) {
		t.Fatalf("error = %v, want *TimeoutError", err)
	}
	if toErr.After <= 0 {
		t.Errorf("After = %v, want > 0", toErr.After)
	}
	if elapsed > 8*time.Second {
		t.Errorf("run took %v, child was not terminated promptly", elapsed)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	r := newTestRunner(t)
	r.Timeout = 0

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := r.Run(ctx, "sleep 10")
	elapsed := time.Since(start)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if elapsed > 8*time.Second {
		t.Errorf("run took %v, child was not terminated promptly", elapsed)
	}
}

func TestRun_CallerDeadline(t *testing.T) {
	r := newTestRunner(t)
	r.Timeout = 0 // deadline comes from the caller's context

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := r.Run(ctx, "sleep 10")
	var toErr *TimeoutError
	if !errors.As(err, &toErr) {
		t.Fatalf("error = %v, want *TimeoutError", err)
	}
}

// TestRun_LargeInterleavedOutput fills both pipes well past the kernel
// buffer size. A reader that drained the streams sequentially would
// deadlock here: the child blocks writing stderr while the parent waits
// for stdout EOF.
func TestRun_LargeInterleavedOutput(t *testing.T) {
	r := newTestRunner(t)

	const line = "0123456789abcdef0123456789abcde" // 31 chars + newline
	const n = 4000
	command := fmt.Sprintf(
		"i=0; while [ $i -lt %d ]; do echo %s; echo %s 1>&2; i=$((i+1)); done", n, line, line)

	res, err := r.Run(context.Background(), command)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := n * (len(line) + 1)
	if len(res.Stdout) != want {
		t.Errorf("len(Stdout) = %d, want %d", len(res.Stdout), want)
	}
	if len(res.Stderr) != want {
		t.Errorf("len(Stderr) = %d, want %d", len(res.Stderr), want)
	}
	if res.Truncated {
		t.Error("Truncated = true, want false")
	}
}

func TestRun_OutputTruncation(t *testing.T) {
	r := newTestRunner(t)
	r.MaxOutput = 100

	res, err := r.Run(context.Background(), "dd if=/dev/zero bs=1000 count=1 2>/dev/null")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(res.Stdout) != r.MaxOutput {
		t.Errorf("len(Stdout) = %d, want %d", len(res.Stdout), r.MaxOutput)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0 (child must drain past the cap)", res.ExitCode)
	}
}

func TestRun_InvalidUTF8Replaced(t *testing.T) {
	r := newTestRunner(t)
	res, err := r.Run(context.Background(), `printf '\377\376 ok'`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Stdout, "�") {
		t.Errorf("Stdout = %q, want invalid bytes replaced with U+FFFD", res.Stdout)
	}
	if !strings.HasSuffix(res.Stdout, " ok") {
		t.Errorf("Stdout = %q, want valid suffix preserved", res.Stdout)
	}
}

func TestRun_SequentialRunsIndependent(t *testing.T) {
	r := newTestRunner(t)

	first, err := r.Run(context.Background(), "echo first")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.Run(context.Background(), "echo second")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.RunID == second.RunID {
		t.Errorf("RunID repeated across runs: %q", first.RunID)
	}
	if first.Stdout != "first\n" || second.Stdout != "second\n" {
		t.Errorf("outputs bled across runs: %q, %q", first.Stdout, second.Stdout)
	}
}
