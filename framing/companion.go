package framing

import (
	"fmt"
)

// CompanionFrameType identifies the payload carried by a Companion
// frame. E_OPACK (0x08) carries compact-pack-encoded maps once
// pair-verify has completed; the other values appear only during the
// plaintext pairing dance.
type CompanionFrameType byte

const (
	CompanionFrameNoOp               CompanionFrameType = 0x00
	CompanionFramePairSetupStart     CompanionFrameType = 0x03
	CompanionFramePairSetupNext      CompanionFrameType = 0x04
	CompanionFramePairVerifyStart    CompanionFrameType = 0x05
	CompanionFramePairVerifyNext     CompanionFrameType = 0x06
	CompanionFrameEncryptedOpack     CompanionFrameType = 0x08
)

// CompanionFrameHeaderSize is the fixed 4-byte header: 1 byte frame
// type, 3 bytes big-endian payload length.
const CompanionFrameHeaderSize = 4

// CompanionFrame is one parsed Companion frame.
type CompanionFrame struct {
	Type    CompanionFrameType
	Payload []byte
}

// EncodeCompanionFrame renders a frame header+payload to wire bytes.
func EncodeCompanionFrame(t CompanionFrameType, payload []byte) []byte {
	out := make([]byte, CompanionFrameHeaderSize+len(payload))
	out[0] = byte(t)
	putUint24BE(out[1:4], len(payload))
	copy(out[4:], payload)
	return out
}

func putUint24BE(b []byte, v int) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func uint24BE(b []byte) int {
	return int(b[0])<<16 | int(b[1])<<8 | int(b[2])
}

// ParseCompanionFrames parses every complete frame present in buf and
// returns them along with the unconsumed remainder (a partial header
// or a header whose payload hasn't fully arrived yet).
func ParseCompanionFrames(buf []byte) (frames []CompanionFrame, remainder []byte, err error) {
	offset := 0
	for {
		if len(buf)-offset < CompanionFrameHeaderSize {
			break
		}
		hdr := buf[offset : offset+CompanionFrameHeaderSize]
		length := uint24BE(hdr[1:4])
		if length < 0 || length > 1<<20 {
			return nil, nil, fmt.Errorf("framing: implausible companion frame length %d", length)
		}
		total := CompanionFrameHeaderSize + length
		if len(buf)-offset < total {
			break
		}
		frames = append(frames, CompanionFrame{
			Type:    CompanionFrameType(hdr[0]),
			Payload: append([]byte{}, buf[offset+CompanionFrameHeaderSize:offset+total]...),
		})
		offset += total
	}
	return frames, buf[offset:], nil
}
