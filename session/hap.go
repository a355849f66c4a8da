// Package session implements the two AEAD session types carried over
// an established connection: the HAP control/event/data session
// (chunked, per-direction counters, spec §4.3) and the Companion
// session (single-message, AAD over the outer frame header, spec
// §4.3/§4.9 component C7).
package session

import (
	"crypto/cipher"
	"encoding/binary"

	cryptoprim "github.com/arag0re/go-mrp-remote/crypto"
	"github.com/arag0re/go-mrp-remote/framing"
	"github.com/arag0re/go-mrp-remote/mrperrors"
)

// counter is a per-direction 64-bit little-endian nonce counter,
// incremented once per AEAD invocation and never reused (spec §3).
type counter struct {
	value uint64
}

func (c *counter) nonce() [12]byte {
	var n [12]byte
	binary.LittleEndian.PutUint64(n[4:], c.value)
	return n
}

func (c *counter) advance() {
	c.value++
}

// HAPSession holds one channel's directional keys and counters and
// implements the chunked encrypt/decrypt discipline of spec §4.3: a
// write of N bytes becomes ceil(N/1024) frames, each independently
// sealed with its own nonce.
type HAPSession struct {
	writeAEAD cipher.AEAD
	readAEAD  cipher.AEAD
	writeCtr  counter
	readCtr   counter
}

// NewHAPSession builds a session from its two 32-byte directional keys.
func NewHAPSession(writeKey, readKey []byte) *HAPSession {
	return &HAPSession{
		writeAEAD: cryptoprim.MustNewAEAD(writeKey),
		readAEAD:  cryptoprim.MustNewAEAD(readKey),
	}
}

// WriteCounter returns the current outbound counter value, for tests
// and diagnostics.
func (s *HAPSession) WriteCounter() uint64 { return s.writeCtr.value }

// ReadCounter returns the current inbound counter value.
func (s *HAPSession) ReadCounter() uint64 { return s.readCtr.value }

// EncryptFrames splits plaintext into at-most-1024-byte chunks and
// seals each into a full HAP frame (length prefix + ciphertext + tag),
// advancing the outbound counter once per chunk.
func (s *HAPSession) EncryptFrames(plaintext []byte) [][]byte {
	chunks := framing.SplitPlaintext(plaintext)
	frames := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		hdr := framing.NewHAPFrameHeader(len(chunk))
		nonce := s.writeCtr.nonce()
		sealed := s.writeAEAD.Seal(nil, nonce[:], chunk, hdr[:])
		frames[i] = append(append([]byte{}, hdr[:]...), sealed...)
		s.writeCtr.advance()
	}
	return frames
}

// DecryptFrame opens a single already-parsed HAP frame, advancing the
// inbound counter. A tag-verification failure is always fatal for the
// channel (spec §4.3, §7).
func (s *HAPSession) DecryptFrame(f framing.HAPFrame) ([]byte, error) {
	plaintext, err := s.readAEAD.Open(nil, s.readCtr.nonce0(), f.Sealed, f.LengthPrefix[:])
	if err != nil {
		return nil, mrperrors.Cryptographic("HAP frame AEAD verification failed: %v", err)
	}
	s.readCtr.advance()
	return plaintext, nil
}

// nonce0 is a helper so DecryptFrame reads the slice form directly.
func (c *counter) nonce0() []byte {
	n := c.nonce()
	return n[:]
}
