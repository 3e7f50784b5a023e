package clientpool

import "fmt"

// State is a ServerConnection's position in the transport state machine of
// spec.md §4.2.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateFailed:
		return "Failed"
	default:
		return "Disconnected"
	}
}

// ErrConnect is ConnectError from spec.md §7: a server failed to connect or
// failed tools/list. Non-fatal to the pool: the server is marked Failed and
// the rest of the pool proceeds.
type ErrConnect struct {
	Server string
	Err    error
}

func (e *ErrConnect) Error() string {
	return fmt.Sprintf("connect %q: %v", e.Server, e.Err)
}
func (e *ErrConnect) Unwrap() error { return e.Err }

// ErrUpstreamCall is CallError::Upstream from spec.md §7: the upstream
// returned an error, or the transport failed even after the one permitted
// retry.
type ErrUpstreamCall struct {
	Server, Tool string
	Err          error
}

func (e *ErrUpstreamCall) Error() string {
	return fmt.Sprintf("call %s.%s: %v", e.Server, e.Tool, e.Err)
}
func (e *ErrUpstreamCall) Unwrap() error { return e.Err }

// ErrUnknownServer is CallError::UnknownServer from spec.md §7.
type ErrUnknownServer struct{ Server string }

func (e *ErrUnknownServer) Error() string { return fmt.Sprintf("unknown server %q", e.Server) }

// ErrUnknownTool is CallError::UnknownTool from spec.md §7.
type ErrUnknownTool struct{ Server, Tool string }

func (e *ErrUnknownTool) Error() string {
	return fmt.Sprintf("server %q has no tool %q", e.Server, e.Tool)
}

// ErrServerFailed is returned by Call when the connection is in the Failed
// state: "On Failed, call returns an error without further reconnect
// attempts this generation" (spec.md §4.2).
type ErrServerFailed struct {
	Server string
	Cause  error
}

func (e *ErrServerFailed) Error() string {
	return fmt.Sprintf("server %q is marked failed: %v", e.Server, e.Cause)
}
func (e *ErrServerFailed) Unwrap() error { return e.Cause }
