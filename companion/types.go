// Package companion drives the Companion Link connection state machine
// (spec §4.8, component C11): a single TCP connection to the announced
// companion port that performs framed pair-verify, derives a
// single-message AEAD session, and multiplexes request/response
// exchanges by a monotonically increasing transfer identifier.
package companion

import "time"

// State is the companion connection's state (spec §4.8).
type State int

const (
	StateDisconnected State = iota
	StateTcpOpen
	StateVerifyInProgress
	StateReady
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateTcpOpen:
		return "tcp-open"
	case StateVerifyInProgress:
		return "verify-in-progress"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Options bundles the caller-supplied companion connection
// configuration.
type Options struct {
	DialTimeout     time.Duration
	ResponseTimeout time.Duration
}

// DefaultOptions returns conservative defaults.
func DefaultOptions() Options {
	return Options{
		DialTimeout:     5 * time.Second,
		ResponseTimeout: 5 * time.Second,
	}
}
