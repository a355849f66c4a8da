// Package crypto wraps the small set of cryptographic primitives the
// pairing and session layers build on: HKDF-SHA512 key derivation,
// ChaCha20-Poly1305 AEAD, Ed25519 signing, X25519 ECDH and a CSPRNG.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"strconv"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"maze.io/x/crypto/x25519"
)

// Fingerprint constants, keyed literally by role. These must be produced
// exactly as the byte sequences a peer expects; see spec §3.
const (
	SaltPairSetupControllerSign = "Pair-Setup-Controller-Sign-Salt"
	InfoPairSetupControllerSign = "Pair-Setup-Controller-Sign-Info"
	SaltPairSetupEncrypt        = "Pair-Setup-Encrypt-Salt"
	InfoPairSetupEncrypt        = "Pair-Setup-Encrypt-Info"
	SaltPairVerifyEncrypt       = "Pair-Verify-Encrypt-Salt"
	InfoPairVerifyEncrypt       = "Pair-Verify-Encrypt-Info"
	SaltControl                 = "Control-Salt"
	InfoControlWrite            = "Control-Write-Encryption-Key"
	InfoControlRead             = "Control-Read-Encryption-Key"
	SaltEvents                  = "Events-Salt"
	InfoEventsRead              = "Events-Read-Encryption-Key"
	InfoEventsWrite             = "Events-Write-Encryption-Key"
	InfoDataStreamOutput        = "DataStream-Output-Encryption-Key"
	InfoDataStreamInput         = "DataStream-Input-Encryption-Key"
	InfoClientEncryptMain       = "ClientEncrypt-main"
	InfoServerEncryptMain       = "ServerEncrypt-main"
)

// DataStreamSalt renders the per-connection DataStream salt: the literal
// "DataStream-Salt" followed by the decimal seed chosen for the
// connection (spec §3).
func DataStreamSalt(seed int32) string {
	return "DataStream-Salt" + strconv.Itoa(int(seed))
}

// DeriveKey runs HKDF-SHA512 over sharedSecret with the given salt/info
// strings and returns a 32-byte key, the size every session key and
// signing-material derivation in this system uses.
func DeriveKey(sharedSecret []byte, salt, info string) []byte {
	r := hkdf.New(newSHA512, sharedSecret, []byte(salt), []byte(info))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		panic(err) // hkdf over a fixed-size reader only fails on programmer error
	}
	return key
}

// MustNewAEAD constructs a ChaCha20-Poly1305 AEAD from a 32-byte key. It
// panics on key-length errors, which can only originate from a
// programming mistake since every caller derives 32-byte keys via
// DeriveKey.
func MustNewAEAD(key []byte) interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
	Overhead() int
} {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		panic(err)
	}
	return aead
}

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		panic(err)
	}
	return b
}

// GenerateEd25519 returns a fresh Ed25519 long-term signing key pair.
func GenerateEd25519() (ed25519.PublicKey, ed25519.PrivateKey) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}
	return pub, priv
}

// GenerateX25519 returns a fresh ephemeral X25519 key pair, using the
// same x25519 implementation the teacher's pair-verify code built on.
func GenerateX25519() (x25519.PrivateKey, x25519.PublicKey) {
	priv := x25519.PrivateKey{}
	priv.SetBytes(RandomBytes(32))
	return priv, priv.PublicKey
}

// ParseX25519PublicKey interprets 32 raw bytes as an X25519 public key.
func ParseX25519PublicKey(raw []byte) x25519.PublicKey {
	pub := x25519.PublicKey{}
	pub.SetBytes(raw)
	return pub
}

// SharedSecret runs X25519 ECDH between priv and pub.
func SharedSecret(priv *x25519.PrivateKey, pub *x25519.PublicKey) []byte {
	return priv.Shared(pub)
}
