// Package datastream builds and parses the DataStream-framed carrier
// the AirPlay data channel uses for MRP envelopes (spec §4.4, §4.7,
// component C13). The 2-second feedback heartbeat is run by
// airplay.Conn, not by this package.
//
// Each frame's payload, once unwrapped from its 32-byte header, is a
// binary property list of the form { params: { data: <payload> } }
// where data is an unsigned-varint length prefix followed by the raw
// MRP envelope bytes (spec §4.4).
package datastream

import (
	"math/rand"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/arag0re/go-mrp-remote/framing"
	"github.com/arag0re/go-mrp-remote/mrperrors"
	"github.com/arag0re/go-mrp-remote/plist"
)

// NewSequence picks the fixed per-connection sequence number once, in
// the documented range [2^32, 2*2^32-1] (spec §4.4). It is never
// incremented afterward (spec §9 Open Question, resolved: not
// implemented).
func NewSequence() uint64 {
	const base = uint64(1) << 32
	return base + uint64(rand.Int63n(int64(base)))
}

// WrapEnvelope builds the plist payload carrying envelopeBytes.
func WrapEnvelope(envelopeBytes []byte) ([]byte, error) {
	var lenPrefix []byte
	lenPrefix = protowire.AppendVarint(lenPrefix, uint64(len(envelopeBytes)))
	data := append(lenPrefix, envelopeBytes...)
	m := map[string]interface{}{
		"params": map[string]interface{}{
			"data": data,
		},
	}
	return plist.Marshal(m)
}

// UnwrapEnvelope extracts the raw MRP envelope bytes out of a frame
// payload built by WrapEnvelope (or received from a peer in the same
// shape).
func UnwrapEnvelope(payload []byte) ([]byte, error) {
	m, err := plist.ParseMap(payload)
	if err != nil {
		return nil, mrperrors.ProtocolViolation("datastream: parse payload plist: %v", err)
	}
	params, ok := m["params"].(map[string]interface{})
	if !ok {
		return nil, mrperrors.ProtocolViolation("datastream: payload missing params dict")
	}
	data, ok := params["data"].([]byte)
	if !ok {
		return nil, mrperrors.ProtocolViolation("datastream: params missing data field")
	}
	length, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return nil, mrperrors.ProtocolViolation("datastream: malformed data length prefix")
	}
	rest := data[n:]
	if uint64(len(rest)) < length {
		return nil, mrperrors.ProtocolViolation("datastream: data shorter than declared length")
	}
	return rest[:length], nil
}

// BuildSync renders an outbound sync frame carrying envelopeBytes at
// the connection's fixed sequence number.
func BuildSync(sequence uint64, envelopeBytes []byte) ([]byte, error) {
	payload, err := WrapEnvelope(envelopeBytes)
	if err != nil {
		return nil, err
	}
	return framing.EncodeDataStreamFrame(framing.DataStreamTypeSync, framing.DataStreamCommComm, sequence, payload), nil
}

// BuildReply renders a header-only reply frame acknowledging an
// inbound sync frame at the same sequence number (spec §4.4).
func BuildReply(sequence uint64) []byte {
	return framing.EncodeDataStreamFrame(framing.DataStreamTypeReply, [4]byte{}, sequence, nil)
}

// IsSync reports whether f is a sync frame requiring a reply.
func IsSync(f framing.DataStreamFrame) bool {
	return f.MessageType == framing.DataStreamTypeSync
}

// IsReply reports whether f is a reply frame, silently absorbed.
func IsReply(f framing.DataStreamFrame) bool {
	return f.MessageType == framing.DataStreamTypeReply
}
