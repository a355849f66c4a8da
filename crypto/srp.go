package crypto

import (
	"crypto/sha512"
	"fmt"

	"github.com/tadglines/go-pkgs/crypto/srp"
)

// srpGroup names the RFC 5054 3072-bit MODP group HAP pair-setup is
// documented to use.
const srpGroup = "rfc5054.3072"

// SRPClientSession drives the client side of an SRP-6a exchange across
// the M1..M4 message exchange of pair-setup: generate an ephemeral
// keypair, consume the server's salt and public value, derive the
// session key, and produce/verify the mutual proofs.
type SRPClientSession struct {
	session   *srp.ClientSession
	publicKey []byte

	sessionKey []byte
}

// NewSRPClientSession starts an SRP-6a client session for the given
// identity ("Pair-Setup" for HAP) and password (the setup PIN).
func NewSRPClientSession(identity, password string) (*SRPClientSession, error) {
	group, err := srp.NewSRP(srpGroup, sha512.New, keyDerivativeFuncRFC2945(sha512.New, []byte(identity)))
	if err != nil {
		return nil, fmt.Errorf("srp: init group %q: %w", srpGroup, err)
	}
	group.SaltLength = 16

	session := group.NewClientSession([]byte(identity), []byte(password))
	return &SRPClientSession{session: session, publicKey: session.GetA()}, nil
}

// PublicKey returns A = g^a mod N, as produced by the SRP library.
func (s *SRPClientSession) PublicKey() []byte {
	return s.publicKey
}

// SetServerPublic consumes the server's M2 (salt, B) and derives the
// shared session key. It returns an error if B is degenerate (B mod N
// == 0), which must abort the exchange per RFC 5054 §2.5.4.
func (s *SRPClientSession) SetServerPublic(salt, serverPublic []byte) error {
	key, err := s.session.ComputeKey(salt, serverPublic)
	if err != nil {
		return fmt.Errorf("srp: compute session key: %w", err)
	}
	s.sessionKey = key
	return nil
}

// SessionKey returns the derived shared secret K.
func (s *SRPClientSession) SessionKey() []byte {
	return s.sessionKey
}

// ClientProof computes M1, the client evidence message proving
// knowledge of the password.
func (s *SRPClientSession) ClientProof() []byte {
	return s.session.ComputeAuthenticator()
}

// VerifyServerProof checks M2, the server's evidence message, against
// the locally computed value and reports whether it matches.
func (s *SRPClientSession) VerifyServerProof(serverProof []byte) bool {
	return s.session.VerifyServerAuthenticator(serverProof)
}

// keyDerivativeFuncRFC2945 returns the SRP-6a key derivative function
// HAP pair-setup uses: x = H(s | H(I | ":" | P)).
func keyDerivativeFuncRFC2945(h srp.HashFunc, id []byte) srp.KeyDerivationFunc {
	return func(salt, pin []byte) []byte {
		inner := h()
		inner.Write(id)
		inner.Write([]byte(":"))
		inner.Write(pin)
		t2 := inner.Sum(nil)

		outer := h()
		outer.Write(salt)
		outer.Write(t2)
		return outer.Sum(nil)
	}
}
