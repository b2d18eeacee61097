package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/termserv/termserv/internal/dispatch"
	"github.com/termserv/termserv/internal/history"
)

// registerDispatchTools registers the tools that route through the
// dispatcher: run_command and fetch_url.
func registerDispatchTools(s *sdkmcp.Server, h *handler) {
	s.AddTool(&sdkmcp.Tool{
		Name: "run_command",
		Description: `Execute a shell command and return its output.

The command line is passed to the shell verbatim, so pipes, redirection, and
expansions all work. The result is JSON with stdout, stderr, return_code, and
a run_id that run_log accepts later. A non-zero return_code is a normal
result, not an error.`,
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"command": {
					Type:        "string",
					Description: "Shell command line to execute.",
				},
				"timeout_seconds": {
					Type:        "number",
					Description: "Optional deadline for this run, in seconds. The command is killed when it expires.",
				},
			},
			Required: []string{"command"},
		},
	}, h.makeDispatchHandler(dispatch.MethodRunCommand))

	s.AddTool(&sdkmcp.Tool{
		Name: "fetch_url",
		Description: `Fetch an http(s) URL with GET and return its body, status, and content type as JSON.`,
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"url": {
					Type:        "string",
					Description: "The http or https URL to fetch.",
				},
			},
			Required: []string{"url"},
		},
	}, h.makeDispatchHandler(dispatch.MethodFetchURL))
}

// makeDispatchHandler bridges one dispatch method onto the protocol:
// raw arguments in, JSON-encoded response out. Dispatch errors are
// returned as errors so they surface to the client as protocol-level
// failures rather than tool output.
func (h *handler) makeDispatchHandler(method string) sdkmcp.ToolHandler {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, &dispatch.InvalidArgumentError{Field: "arguments", Reason: err.Error()}
			}
		}

		started := time.Now()
		out, err := h.disp.Dispatch(ctx, method, args)
		if err != nil {
			h.log.Warn("dispatch failed", "method", method, "error", err)
			return nil, err
		}

		if resp, ok := out.(*dispatch.CommandResponse); ok {
			h.saveRecord(resp, args, started)
		}

		data, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("encoding %s response: %w", method, err)
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
		}, nil
	}
}

// saveRecord appends a completed run to the session history. History
// is best-effort; a failed save never fails the call.
func (h *handler) saveRecord(resp *dispatch.CommandResponse, args map[string]any, started time.Time) {
	command, _ := args["command"].(string)
	rec := &history.Record{
		ID:         resp.RunID,
		Command:    command,
		Stdout:     resp.Stdout,
		Stderr:     resp.Stderr,
		ExitCode:   resp.ReturnCode,
		Truncated:  resp.Truncated,
		StartedAt:  started,
		DurationMS: resp.DurationMS,
	}
	if err := h.store.Save(rec); err != nil {
		h.log.Warn("saving run record", "run_id", resp.RunID, "error", err)
	}
}
