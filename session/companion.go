package session

import (
	"crypto/cipher"

	cryptoprim "github.com/arag0re/go-mrp-remote/crypto"
	"github.com/arag0re/go-mrp-remote/framing"
	"github.com/arag0re/go-mrp-remote/mrperrors"
)

// CompanionSession is the Companion link's AEAD session: one message
// per AEAD invocation (no chunking), with the 4-byte outer Companion
// frame header as associated data (spec §4.3 component C7).
type CompanionSession struct {
	writeAEAD cipher.AEAD
	readAEAD  cipher.AEAD
	writeCtr  counter
	readCtr   counter
}

// NewCompanionSession builds a session from its two 32-byte directional keys.
func NewCompanionSession(writeKey, readKey []byte) *CompanionSession {
	return &CompanionSession{
		writeAEAD: cryptoprim.MustNewAEAD(writeKey),
		readAEAD:  cryptoprim.MustNewAEAD(readKey),
	}
}

// Encrypt seals plaintext into a single E_OPACK frame, using the
// frame's own header (type byte + 3-byte length of the sealed
// payload) as AAD.
func (s *CompanionSession) Encrypt(plaintext []byte) []byte {
	sealedLen := len(plaintext) + 16
	header := framing.EncodeCompanionFrame(framing.CompanionFrameEncryptedOpack, make([]byte, sealedLen))[:framing.CompanionFrameHeaderSize]
	nonce := s.writeCtr.nonce()
	sealed := s.writeAEAD.Seal(nil, nonce[:], plaintext, header)
	s.writeCtr.advance()
	return framing.EncodeCompanionFrame(framing.CompanionFrameEncryptedOpack, sealed)
}

// Decrypt opens a parsed Companion frame's payload, reconstructing the
// same 4-byte header as AAD.
func (s *CompanionSession) Decrypt(frame framing.CompanionFrame) ([]byte, error) {
	header := framing.EncodeCompanionFrame(frame.Type, frame.Payload)[:framing.CompanionFrameHeaderSize]
	nonce := s.readCtr.nonce()
	plaintext, err := s.readAEAD.Open(nil, nonce[:], frame.Payload, header)
	if err != nil {
		return nil, mrperrors.Cryptographic("companion frame AEAD verification failed: %v", err)
	}
	s.readCtr.advance()
	return plaintext, nil
}
