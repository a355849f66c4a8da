// Package mrp builds and parses the Media Remote Protocol wire
// envelope and the small set of message kinds this client speaks, and
// dispatches inbound envelopes to registered observers (spec §4.9,
// component C12).
//
// Every envelope is a raw protobuf-wire-format message: field 1 is the
// numeric message type (varint), field 2 is a random per-message
// identifier string (omitted for CryptoPairing), and the
// message-specific payload is a length-delimited submessage whose
// field number equals the envelope's type value.
package mrp

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/arag0re/go-mrp-remote/mrperrors"
)

// Type identifies an MRP message kind by its protobuf field number.
type Type uint32

const (
	TypeSendCommand          Type = 1
	TypeSetState             Type = 4
	TypeSendHIDEvent         Type = 8
	TypeDeviceInfo           Type = 15
	TypeClientUpdatesConfig  Type = 16
	TypeTextInput            Type = 25
	TypePlaybackQueueRequest Type = 32
	TypeCryptoPairing        Type = 34
	TypeSetConnectionState   Type = 38
	TypeWakeDevice           Type = 41
	TypeGenericMessage       Type = 42
	TypeSendButtonEvent      Type = 43
)

// Envelope is a decoded MRP message: its type, its identifier (empty
// for CryptoPairing and for any inbound message the peer omitted it
// on), and the raw bytes of the type-keyed submessage.
type Envelope struct {
	Type       Type
	Identifier string
	Payload    []byte
}

// Encode renders env to wire bytes: field 1 type, field 2 identifier
// (skipped when empty), field <type> payload.
func Encode(env Envelope) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(env.Type))
	if env.Identifier != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, env.Identifier)
	}
	if len(env.Payload) > 0 {
		b = protowire.AppendTag(b, protowire.Number(env.Type), protowire.BytesType)
		b = protowire.AppendBytes(b, env.Payload)
	}
	return b
}

// Decode parses an envelope's type, identifier and type-keyed
// submessage payload out of wire bytes.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	for len(data) > 0 {
		num, wireType, n := protowire.ConsumeTag(data)
		if n < 0 {
			return env, mrperrors.ProtocolViolation("mrp: malformed envelope tag: %v", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == 1 && wireType == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return env, mrperrors.ProtocolViolation("mrp: malformed type field")
			}
			env.Type = Type(v)
			data = data[n:]
		case num == 2 && wireType == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return env, mrperrors.ProtocolViolation("mrp: malformed identifier field")
			}
			env.Identifier = string(v)
			data = data[n:]
		case wireType == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return env, mrperrors.ProtocolViolation("mrp: malformed submessage field %d", num)
			}
			if Type(num) == env.Type {
				env.Payload = append([]byte{}, v...)
			}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, wireType, data)
			if n < 0 {
				return env, mrperrors.ProtocolViolation("mrp: malformed field %d", num)
			}
			data = data[n:]
		}
	}
	return env, nil
}

// field helpers shared by message encoders/decoders below: every
// concrete message's fields are numbered from 1 within its own
// submessage, independent of the envelope's field numbering.

func appendStringField(b []byte, field protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, field, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytesField(b []byte, field protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, field, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarintField(b []byte, field protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, field, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBoolField(b []byte, field protowire.Number, v bool) []byte {
	var u uint64
	if v {
		u = 1
	}
	return appendVarintField(b, field, u)
}

func appendMessageField(b []byte, field protowire.Number, sub []byte) []byte {
	if len(sub) == 0 {
		return b
	}
	b = protowire.AppendTag(b, field, protowire.BytesType)
	return protowire.AppendBytes(b, sub)
}

// consumeFields walks a submessage's fields and invokes fn per field;
// fn consumes zero or more bytes of the remaining buffer and returns
// how many bytes it consumed, or a negative protowire error code.
func consumeFields(data []byte, fn func(num protowire.Number, wireType protowire.Type, data []byte) int) error {
	for len(data) > 0 {
		num, wireType, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("mrp: malformed field tag: %v", protowire.ParseError(n))
		}
		data = data[n:]
		consumed := fn(num, wireType, data)
		if consumed < 0 {
			consumed = protowire.ConsumeFieldValue(num, wireType, data)
			if consumed < 0 {
				return fmt.Errorf("mrp: malformed field %d", num)
			}
		}
		data = data[consumed:]
	}
	return nil
}
