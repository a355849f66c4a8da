package framing

import (
	"encoding/binary"
	"fmt"
)

// DataStreamHeaderSize is the fixed 32-byte frame header size (spec §4.4).
const DataStreamHeaderSize = 32

// DataStream message-type and command ASCII tags.
var (
	DataStreamTypeSync  = [4]byte{'s', 'y', 'n', 'c'}
	DataStreamTypeReply = [4]byte{'r', 'p', 'l', 'y'}
	DataStreamCommComm  = [4]byte{'c', 'o', 'm', 'm'}
)

// DataStreamFrame is a parsed 32-byte DataStream header plus its
// variable-length payload.
type DataStreamFrame struct {
	MessageType [4]byte
	Command     [4]byte
	Sequence    uint64
	Payload     []byte
}

// EncodeDataStreamFrame renders header+payload to wire bytes. totalSize
// is computed as 32 (header) + len(payload).
func EncodeDataStreamFrame(messageType, command [4]byte, sequence uint64, payload []byte) []byte {
	totalSize := DataStreamHeaderSize + len(payload)
	buf := make([]byte, totalSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(totalSize))
	copy(buf[4:8], messageType[:])
	// 8 zero bytes at buf[8:16]
	copy(buf[16:20], command[:])
	binary.BigEndian.PutUint64(buf[20:28], sequence)
	// buf[28:32] stays zero padding
	copy(buf[DataStreamHeaderSize:], payload)
	return buf
}

// ParseDataStreamFrame parses exactly one frame from buf, which must
// contain at least the 32-byte header; if the declared total size
// extends beyond buf, it returns an error so the caller can wait for
// more data.
func ParseDataStreamFrame(buf []byte) (DataStreamFrame, int, error) {
	if len(buf) < DataStreamHeaderSize {
		return DataStreamFrame{}, 0, fmt.Errorf("framing: short DataStream header")
	}
	totalSize := int(binary.BigEndian.Uint32(buf[0:4]))
	if totalSize < DataStreamHeaderSize {
		return DataStreamFrame{}, 0, fmt.Errorf("framing: implausible DataStream total size %d", totalSize)
	}
	if len(buf) < totalSize {
		return DataStreamFrame{}, 0, fmt.Errorf("framing: DataStream frame incomplete: have %d want %d", len(buf), totalSize)
	}
	var f DataStreamFrame
	copy(f.MessageType[:], buf[4:8])
	copy(f.Command[:], buf[16:20])
	f.Sequence = binary.BigEndian.Uint64(buf[20:28])
	if totalSize > DataStreamHeaderSize {
		f.Payload = append([]byte{}, buf[DataStreamHeaderSize:totalSize]...)
	}
	return f, totalSize, nil
}
