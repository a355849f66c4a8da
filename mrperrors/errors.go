// Package mrperrors defines the error taxonomy of spec §7 and the
// stage-wrapping policy that every terminal error in pairing, verify or
// channel setup goes through.
package mrperrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind tags an error with one of the five taxonomy members.
type Kind int

const (
	KindProtocolViolation Kind = iota
	KindCryptographic
	KindTransport
	KindPeerError
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindProtocolViolation:
		return "protocol-violation"
	case KindCryptographic:
		return "cryptographic"
	case KindTransport:
		return "transport"
	case KindPeerError:
		return "peer-error"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error is the concrete typed error every taxonomy member produces.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newErr(k Kind, format string, args ...interface{}) error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// ProtocolViolation reports an unexpected tag, missing required field,
// bad sequence number, or unknown compact-pack tag.
func ProtocolViolation(format string, args ...interface{}) error {
	return newErr(KindProtocolViolation, format, args...)
}

// Cryptographic reports an AEAD tag failure, signature failure, or SRP
// proof mismatch.
func Cryptographic(format string, args ...interface{}) error {
	return newErr(KindCryptographic, format, args...)
}

// Transport reports a socket close, connect failure, or response
// timeout.
func Transport(format string, args ...interface{}) error {
	return newErr(KindTransport, format, args...)
}

// PeerError reports a non-zero Error TLV received from the peer.
func PeerError(code byte) error {
	return newErr(KindPeerError, "peer reported error code 0x%02x", code)
}

// Configuration reports missing credentials or an unavailable service
// port.
func Configuration(format string, args ...interface{}) error {
	return newErr(KindConfiguration, format, args...)
}

// WithStage wraps err with the connection stage it occurred in
// ("verify", "setup-event", "record", "setup-data", "mrp-init", ...),
// preserving the original typed error for errors.As/errors.Cause.
func WithStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "stage %s", stage)
}

// Cause unwraps to the innermost error, typically an *Error.
func Cause(err error) error {
	return errors.Cause(err)
}

// As reports whether err (or any error it wraps) is an *Error of Kind k.
func As(err error, k Kind) bool {
	e, ok := errors.Cause(err).(*Error)
	return ok && e.Kind == k
}
