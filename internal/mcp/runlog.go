package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/termserv/termserv/internal/history"
)

// registerHistoryTools registers the session-history tools: run_log
// and run_history.
func registerHistoryTools(s *mcp.Server, h *handler) {
	mcp.AddTool(s, &mcp.Tool{
		Name: "run_log",
		Description: `Re-read a past command run: its command line, exit code, and full output.

Accepts the run_id from a run_command result or a run_history entry.`,
	}, h.runLogHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "run_history",
		Description: `List recent command runs with their exit codes and durations.`,
	}, h.runHistoryHandler)
}

type runLogParams struct {
	RunID string `json:"run_id" jsonschema:"the run ID from a run_command result"`
}

func (h *handler) runLogHandler(ctx context.Context, req *mcp.CallToolRequest, params runLogParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}

	rec, err := h.store.Load(params.RunID)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return errorResult(fmt.Sprintf("No run %s in this session's history.", params.RunID))
		}
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	return textResult(formatRecord(rec))
}

type runHistoryParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs to list; defaults to 10"`
}

func (h *handler) runHistoryHandler(ctx context.Context, req *mcp.CallToolRequest, params runHistoryParams) (*mcp.CallToolResult, any, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}

	sums, err := h.store.Recent(limit)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to list runs: %v", err))
	}
	if len(sums) == 0 {
		return textResult("No commands have run in this session yet.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent runs (%d):\n", len(sums))
	for _, s := range sums {
		fmt.Fprintf(&b, "  %s  exit %d  %s  %s\n", s.ID, s.ExitCode, formatDuration(s.DurationMS), s.Command)
	}
	fmt.Fprintf(&b, "\nInspect one with run_log(run_id=%q).\n", sums[0].ID)
	return textResult(b.String())
}

func formatRecord(rec *history.Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", rec.ID)
	fmt.Fprintf(&b, "Command: %s\n", rec.Command)
	fmt.Fprintf(&b, "Exit: %d (%s)\n", rec.ExitCode, formatDuration(rec.DurationMS))
	fmt.Fprintf(&b, "Started: %s\n", rec.StartedAt.Format(time.RFC3339))
	if rec.Truncated {
		fmt.Fprintln(&b, "Output was truncated at the configured cap.")
	}

	writeStream(&b, "Stdout", rec.Stdout)
	writeStream(&b, "Stderr", rec.Stderr)

	return b.String()
}

func writeStream(b *strings.Builder, name, content string) {
	fmt.Fprintln(b)
	if content == "" {
		fmt.Fprintf(b, "%s: (empty)\n", name)
		return
	}
	fmt.Fprintf(b, "%s:\n", name)
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		fmt.Fprintf(b, "    %s\n", line)
	}
}

func formatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}
