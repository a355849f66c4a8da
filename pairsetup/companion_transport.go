package pairsetup

import (
	"net"

	"github.com/arag0re/go-mrp-remote/framing"
	"github.com/arag0re/go-mrp-remote/mrperrors"
	"github.com/arag0re/go-mrp-remote/opack"
	"github.com/arag0re/go-mrp-remote/tlv8"
)

var (
	errNotAMap   = mrperrors.ProtocolViolation("companion pair-setup frame payload is not a map")
	errMissingPD = mrperrors.ProtocolViolation("companion pair-setup frame missing _pd field")
)

// CompanionTransport wraps pair-setup TLV8 bytes into the compact-pack
// envelope {"_pd": <tlv>, "_pwTy": 1, "_x": <monotonic>} and frames
// them as PS_Start (first message) or PS_Next (every message after),
// per spec §4.5/§6.
type CompanionTransport struct {
	Conn net.Conn

	xfer int64
	sent bool
	buf  []byte
}

func (t *CompanionTransport) SendPairingTLV(items []tlv8.Item) error {
	t.xfer++
	m := opack.Map{
		{Key: "_pd", Value: opack.Bytes(tlv8.Encode(items))},
		{Key: "_pwTy", Value: int64(1)},
		{Key: "_x", Value: t.xfer},
	}
	payload, err := opack.Marshal(m)
	if err != nil {
		return err
	}
	frameType := framing.CompanionFramePairSetupNext
	if !t.sent {
		frameType = framing.CompanionFramePairSetupStart
		t.sent = true
	}
	_, err = t.Conn.Write(framing.EncodeCompanionFrame(frameType, payload))
	return err
}

func (t *CompanionTransport) ReceivePairingTLV() (tlv8.Map, error) {
	for {
		frames, remainder, err := framing.ParseCompanionFrames(t.buf)
		if err != nil {
			return nil, err
		}
		t.buf = remainder
		if len(frames) > 0 {
			return decodePairingFrame(frames[0])
		}
		chunk := make([]byte, 4096)
		n, err := t.Conn.Read(chunk)
		if err != nil {
			return nil, err
		}
		t.buf = append(t.buf, chunk[:n]...)
	}
}

func decodePairingFrame(f framing.CompanionFrame) (tlv8.Map, error) {
	v, _, err := opack.Unmarshal(f.Payload)
	if err != nil {
		return nil, err
	}
	m, ok := v.(opack.Map)
	if !ok {
		return nil, errNotAMap
	}
	pd, ok := m.Get("_pd")
	if !ok {
		return nil, errMissingPD
	}
	pdBytes, ok := pd.(opack.Bytes)
	if !ok {
		return nil, errMissingPD
	}
	return tlv8.DecodeMap(pdBytes)
}
