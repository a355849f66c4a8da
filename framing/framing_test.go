package framing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHAPFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	hdr := NewHAPFrameHeader(5)
	sealed := append([]byte("hello"), make([]byte, HAPTagSize)...)
	require.NoError(t, WriteHAPFrame(&buf, hdr, sealed))

	frame, err := ReadHAPFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, 5, frame.PlaintextLength())
	assert.Equal(t, sealed, frame.Sealed)
}

func TestSplitPlaintextChunking(t *testing.T) {
	assert.Len(t, SplitPlaintext(make([]byte, 0)), 1)
	assert.Len(t, SplitPlaintext(make([]byte, 1024)), 1)
	assert.Len(t, SplitPlaintext(make([]byte, 1025)), 2)
	assert.Len(t, SplitPlaintext(make([]byte, 4096)), 4)
}

func TestCompanionFrameParsingLeavesPartialRemainder(t *testing.T) {
	f1 := EncodeCompanionFrame(CompanionFrameEncryptedOpack, []byte("abc"))
	f2 := EncodeCompanionFrame(CompanionFrameEncryptedOpack, []byte("de"))
	buf := append(append([]byte{}, f1...), f2...)
	partial := buf[:len(buf)-1]

	frames, remainder, err := ParseCompanionFrames(partial)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("abc"), frames[0].Payload)
	assert.Equal(t, partial[len(f1):], remainder)
}

func TestCompanionFramePartialHeaderStaysInRemainder(t *testing.T) {
	frames, remainder, err := ParseCompanionFrames([]byte{0x08, 0x00})
	require.NoError(t, err)
	assert.Empty(t, frames)
	assert.Equal(t, []byte{0x08, 0x00}, remainder)
}

func TestDataStreamReplyLayout(t *testing.T) {
	const seq uint64 = 0x0000000100000007
	out := EncodeDataStreamFrame(DataStreamTypeReply, [4]byte{}, seq, nil)
	require.Len(t, out, 32)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x20, 'r', 'p', 'l', 'y'}, out[:8])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x07}, out[20:28])
}

func TestDataStreamFrameRoundTrip(t *testing.T) {
	payload := []byte("payload-bytes")
	out := EncodeDataStreamFrame(DataStreamTypeSync, DataStreamCommComm, 42, payload)
	parsed, consumed, err := ParseDataStreamFrame(out)
	require.NoError(t, err)
	assert.Equal(t, len(out), consumed)
	assert.Equal(t, DataStreamTypeSync, parsed.MessageType)
	assert.Equal(t, DataStreamCommComm, parsed.Command)
	assert.Equal(t, uint64(42), parsed.Sequence)
	assert.Equal(t, payload, parsed.Payload)
}

func TestDataStreamFrameIncompleteErrors(t *testing.T) {
	out := EncodeDataStreamFrame(DataStreamTypeSync, DataStreamCommComm, 1, []byte("xy"))
	_, _, err := ParseDataStreamFrame(out[:len(out)-1])
	assert.Error(t, err)
}
