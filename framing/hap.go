// Package framing implements the three wire-framing disciplines this
// module layers encryption under: HAP's 2-byte-length encrypted
// chunks, Companion's 4-byte type+length frames, and DataStream's
// 32-byte header frame (spec §4.3, §4.4, component C5).
package framing

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HAPFrameMaxPayload is the largest plaintext chunk a single HAP frame
// may carry; writers split larger payloads across multiple frames.
const HAPFrameMaxPayload = 1024

// HAPTagSize is the ChaCha20-Poly1305 authentication tag length.
const HAPTagSize = 16

// HAPFrame is a single raw HAP frame before decryption: the 2-byte
// little-endian plaintext-length prefix (which doubles as AEAD AAD)
// and the ciphertext+tag that follows it.
type HAPFrame struct {
	LengthPrefix [2]byte
	Sealed       []byte // ciphertext || 16-byte tag
}

// PlaintextLength decodes the frame's length prefix.
func (f HAPFrame) PlaintextLength() int {
	return int(binary.LittleEndian.Uint16(f.LengthPrefix[:]))
}

// NewHAPFrameHeader builds the 2-byte length prefix for a plaintext of
// the given length.
func NewHAPFrameHeader(plaintextLen int) [2]byte {
	var hdr [2]byte
	binary.LittleEndian.PutUint16(hdr[:], uint16(plaintextLen))
	return hdr
}

// ReadHAPFrame reads one raw frame off r: a 2-byte length prefix
// followed by exactly length+16 sealed bytes.
func ReadHAPFrame(r io.Reader) (HAPFrame, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return HAPFrame{}, err
	}
	length := int(binary.LittleEndian.Uint16(hdr[:]))
	if length > HAPFrameMaxPayload {
		return HAPFrame{}, fmt.Errorf("framing: HAP frame payload too large: %d", length)
	}
	sealed := make([]byte, length+HAPTagSize)
	if _, err := io.ReadFull(r, sealed); err != nil {
		return HAPFrame{}, err
	}
	return HAPFrame{LengthPrefix: hdr, Sealed: sealed}, nil
}

// WriteHAPFrame writes the length prefix followed by the sealed bytes
// as a single frame.
func WriteHAPFrame(w io.Writer, hdr [2]byte, sealed []byte) error {
	buf := make([]byte, 2+len(sealed))
	copy(buf, hdr[:])
	copy(buf[2:], sealed)
	_, err := w.Write(buf)
	return err
}

// SplitPlaintext divides a plaintext payload into HAPFrameMaxPayload-sized
// chunks, ceil(N/1024) of them, for the per-write chunking spec §4.3
// mandates.
func SplitPlaintext(p []byte) [][]byte {
	if len(p) == 0 {
		return [][]byte{p}
	}
	var chunks [][]byte
	for len(p) > 0 {
		n := HAPFrameMaxPayload
		if len(p) < n {
			n = len(p)
		}
		chunks = append(chunks, p[:n])
		p = p[n:]
	}
	return chunks
}
