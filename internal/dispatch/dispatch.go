// Package dispatch routes tool invocations to their implementations.
// The method set is closed: adding a method means adding a case to
// Dispatch, a schema in the server, and tests for both.
package dispatch

import (
	"context"
	"time"

	"github.com/termserv/termserv/internal/fetch"
	"github.com/termserv/termserv/internal/runner"
)

// Method names understood by Dispatch.
const (
	MethodRunCommand = "run_command"
	MethodFetchURL   = "fetch_url"
)

// Dispatcher routes a method name plus decoded arguments to the tool
// implementations. It holds no state of its own; the collaborators own
// every resource, so concurrent dispatches never contend.
type Dispatcher struct {
	Runner  *runner.Runner
	Fetcher *fetch.Fetcher
}

// Dispatch invokes method with args and returns a wire-shaped response.
// Unknown methods return *MethodNotFoundError, malformed arguments
// return *InvalidArgumentError, and tool failures pass through as their
// own typed errors.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, args map[string]any) (any, error) {
	switch method {
	case MethodRunCommand:
		return d.runCommand(ctx, args)
	case MethodFetchURL:
		return d.fetchURL(ctx, args)
	default:
		return nil, &MethodNotFoundError{Method: method}
	}
}

// CommandResponse is the wire shape of a completed command run.
type CommandResponse struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"return_code"`
	RunID      string `json:"run_id"`
	DurationMS int64  `json:"duration_ms"`
	Truncated  bool   `json:"truncated,omitempty"`
}

// NewCommandResponse converts a runner result to its wire shape.
func NewCommandResponse(res *runner.Result) *CommandResponse {
	return &CommandResponse{
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		ReturnCode: res.ExitCode,
		RunID:      res.RunID,
		DurationMS: res.Duration.Milliseconds(),
		Truncated:  res.Truncated,
	}
}

func (d *Dispatcher) runCommand(ctx context.Context, args map[string]any) (*CommandResponse, error) {
	command, err := stringArg(args, "command")
	if err != nil {
		return nil, err
	}

	secs, ok, err := numberArg(args, "timeout_seconds")
	if err != nil {
		return nil, err
	}
	if ok {
		if secs <= 0 {
			return nil, &InvalidArgumentError{Field: "timeout_seconds", Reason: "must be positive"}
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs*float64(time.Second)))
		defer cancel()
	}

	res, err := d.Runner.Run(ctx, command)
	if err != nil {
		return nil, err
	}
	return NewCommandResponse(res), nil
}

// FetchResponse is the wire shape of a fetched URL.
type FetchResponse struct {
	URL         string `json:"url"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body"`
	Truncated   bool   `json:"truncated,omitempty"`
}

func (d *Dispatcher) fetchURL(ctx context.Context, args map[string]any) (*FetchResponse, error) {
	rawURL, err := stringArg(args, "url")
	if err != nil {
		return nil, err
	}
	res, err := d.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return &FetchResponse{
		URL:         res.URL,
		Status:      res.Status,
		ContentType: res.ContentType,
		Body:        res.Body,
		Truncated:   res.Truncated,
	}, nil
}

// stringArg extracts a required non-empty string argument.
func stringArg(args map[string]any, field string) (string, error) {
	v, ok := args[field]
	if !ok {
		return "", &InvalidArgumentError{Field: field, Reason: "required"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &InvalidArgumentError{Field: field, Reason: "must be a string"}
	}
	if s == "" {
		return "", &InvalidArgumentError{Field: field, Reason: "must not be empty"}
	}
	return s, nil
}

// numberArg extracts an optional numeric argument. JSON decoding hands
// numbers over as float64; int covers callers constructing args in Go.
func numberArg(args map[string]any, field string) (float64, bool, error) {
	v, ok := args[field]
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case int:
		return float64(n), true, nil
	default:
		return 0, false, &InvalidArgumentError{Field: field, Reason: "must be a number"}
	}
}
