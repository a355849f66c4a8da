// Package airplay drives the AirPlay connection state machine (spec
// §4.7, component C10): a single persistent control TCP connection
// that performs pair-verify inline, then brings up an event socket and
// a data socket, each with its own HAP session, and carries MRP over
// DataStream framing on the data socket.
package airplay

import (
	"time"

	"github.com/arag0re/go-mrp-remote/mrp"
)

// State is the tagged connection-state variant of spec §3/§4.7.
// Transitions are monotonic toward Ready or Closing.
type State int

const (
	StateDisconnected State = iota
	StateTcpOpen
	StateVerifyComplete
	StateReadyCtrl
	StateReadyMRP
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateTcpOpen:
		return "tcp-open"
	case StateVerifyComplete:
		return "verify-complete"
	case StateReadyCtrl:
		return "ready(ctrl)"
	case StateReadyMRP:
		return "ready(mrp)"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Options bundles the caller-supplied connection configuration (spec
// SPEC_FULL §3 Connection options). Never mutated by the library after
// a Dial call reads it.
type Options struct {
	DialTimeout     time.Duration
	ResponseTimeout time.Duration
	ServiceName     string
	ClientInfo      mrp.ClientInfo
	Verbosity       int
}

// DefaultOptions returns the conservative defaults a caller can start
// from.
func DefaultOptions() Options {
	return Options{
		DialTimeout:     5 * time.Second,
		ResponseTimeout: 5 * time.Second,
		ClientInfo: mrp.ClientInfo{
			Name:        "go-mrp-remote",
			DeviceClass: "4",
		},
	}
}
