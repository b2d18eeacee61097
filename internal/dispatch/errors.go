package dispatch

import (
	"fmt"

	"github.com/termserv/termserv/internal/fetch"
	"github.com/termserv/termserv/internal/runner"
)

// ProtocolError is implemented by every error kind a remote caller can
// see. Kind returns a stable machine-readable token; the same token
// prefixes the message so callers on the far side of the wire can
// classify failures without parsing prose.
type ProtocolError interface {
	error
	Kind() string
}

// MethodNotFoundError reports a method outside the dispatch set.
type MethodNotFoundError struct {
	Method string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("method_not_found: no method %q", e.Method)
}

// Kind returns the stable wire token for this failure.
func (e *MethodNotFoundError) Kind() string { return "method_not_found" }

// InvalidArgumentError reports a missing or malformed argument.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid_argument: %s: %s", e.Field, e.Reason)
}

// Kind returns the stable wire token for this failure.
func (e *InvalidArgumentError) Kind() string { return "invalid_argument" }

// Every wire-visible error kind conforms.
var (
	_ ProtocolError = (*MethodNotFoundError)(nil)
	_ ProtocolError = (*InvalidArgumentError)(nil)
	_ ProtocolError = (*runner.SpawnError)(nil)
	_ ProtocolError = (*runner.TimeoutError)(nil)
	_ ProtocolError = (*runner.RejectedError)(nil)
	_ ProtocolError = (*fetch.Error)(nil)
)
