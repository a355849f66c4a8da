package session

import (
	"bytes"
	"testing"

	"github.com/arag0re/go-mrp-remote/framing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(b byte) []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = b
	}
	return k
}

func TestHAPRoundTripConcreteScenario(t *testing.T) {
	alice := NewHAPSession(key(0x01), key(0x01))
	bob := NewHAPSession(key(0x01), key(0x01))

	frames := alice.EncryptFrames([]byte("hello"))
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{0x05, 0x00}, frames[0][:2])

	f, err := framing.ReadHAPFrame(bytes.NewReader(frames[0]))
	require.NoError(t, err)
	plaintext, err := bob.DecryptFrame(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), plaintext)
}

func TestHAPChunkingOver1024(t *testing.T) {
	s := NewHAPSession(key(0x02), key(0x02))
	payload := bytes.Repeat([]byte{0x09}, 2000)
	frames := s.EncryptFrames(payload)
	assert.GreaterOrEqual(t, len(frames), 2)
	assert.Equal(t, uint64(len(frames)), s.WriteCounter())
}

func TestHAPCounterStartsAtZeroAndAdvancesByN(t *testing.T) {
	s := NewHAPSession(key(0x03), key(0x03))
	assert.Equal(t, uint64(0), s.WriteCounter())
	s.EncryptFrames(make([]byte, 4096))
	assert.Equal(t, uint64(4), s.WriteCounter())
}

func TestHAPWrongKeyFailsDecrypt(t *testing.T) {
	writer := NewHAPSession(key(0x04), key(0x04))
	reader := NewHAPSession(key(0x05), key(0x05))
	frames := writer.EncryptFrames([]byte("secret"))
	f, err := framing.ReadHAPFrame(bytes.NewReader(frames[0]))
	require.NoError(t, err)
	_, err = reader.DecryptFrame(f)
	assert.Error(t, err)
}

func TestHAPTamperedAADFailsDecrypt(t *testing.T) {
	s := NewHAPSession(key(0x06), key(0x06))
	frames := s.EncryptFrames([]byte("secret"))
	f, err := framing.ReadHAPFrame(bytes.NewReader(frames[0]))
	require.NoError(t, err)
	// Flip a bit of the parsed length prefix, so the frame reads in full
	// and only the AAD handed to the AEAD differs from what was sealed.
	f.LengthPrefix[1] ^= 0x01
	_, err = s.DecryptFrame(f)
	assert.Error(t, err)
}

func TestCompanionSessionRoundTrip(t *testing.T) {
	a := NewCompanionSession(key(0x07), key(0x08))
	b := NewCompanionSession(key(0x08), key(0x07))

	frame := a.Encrypt([]byte("companion-payload"))
	frames, remainder, err := framing.ParseCompanionFrames(frame)
	require.NoError(t, err)
	require.Empty(t, remainder)
	require.Len(t, frames, 1)

	plaintext, err := b.Decrypt(frames[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("companion-payload"), plaintext)
}

func TestCompanionSessionFreshStartsAtZero(t *testing.T) {
	s := NewCompanionSession(key(0x09), key(0x0a))
	assert.Equal(t, uint64(0), s.writeCtr.value)
	assert.Equal(t, uint64(0), s.readCtr.value)
}
