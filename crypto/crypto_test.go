package crypto

import (
	"crypto/sha512"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tadglines/go-pkgs/crypto/srp"
)

func TestDeriveKeyIsDeterministicAndSaltInfoBound(t *testing.T) {
	secret := RandomBytes(32)
	k1 := DeriveKey(secret, SaltControl, InfoControlWrite)
	k2 := DeriveKey(secret, SaltControl, InfoControlWrite)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 32)

	kOtherInfo := DeriveKey(secret, SaltControl, InfoControlRead)
	assert.NotEqual(t, k1, kOtherInfo)

	kOtherSalt := DeriveKey(secret, SaltEvents, InfoControlWrite)
	assert.NotEqual(t, k1, kOtherSalt)
}

func TestAEADRoundTripAndTamperDetection(t *testing.T) {
	key := DeriveKey(RandomBytes(32), SaltControl, InfoControlWrite)
	aead := MustNewAEAD(key)
	nonce := make([]byte, aead.NonceSize())

	sealed := aead.Seal(nil, nonce, []byte("hello"), []byte("aad"))
	opened, err := aead.Open(nil, nonce, sealed, []byte("aad"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), opened)

	tampered := append([]byte{}, sealed...)
	tampered[0] ^= 0xFF
	_, err = aead.Open(nil, nonce, tampered, []byte("aad"))
	assert.Error(t, err)

	_, err = aead.Open(nil, nonce, sealed, []byte("wrong-aad"))
	assert.Error(t, err)
}

func TestX25519ECDHAgreesOnSharedSecret(t *testing.T) {
	alicePriv, alicePub := GenerateX25519()
	bobPriv, bobPub := GenerateX25519()

	aliceShared := SharedSecret(&alicePriv, &bobPub)
	bobShared := SharedSecret(&bobPriv, &alicePub)
	assert.Equal(t, aliceShared, bobShared)
	assert.NotEmpty(t, aliceShared)
}

func TestParseX25519PublicKeyRoundTripsThroughBytes(t *testing.T) {
	_, pub := GenerateX25519()
	parsed := ParseX25519PublicKey(pub.Bytes())
	assert.Equal(t, pub, parsed)
}

func TestDataStreamSaltRendersDecimalSeed(t *testing.T) {
	assert.Equal(t, "DataStream-Salt0", DataStreamSalt(0))
	assert.Equal(t, "DataStream-Salt42", DataStreamSalt(42))
	assert.Equal(t, "DataStream-Salt-7", DataStreamSalt(-7))
}

// newSRPServerGroup builds the same SRP-6a group/hash/KDF combination
// SRPClientSession uses, so a test can drive the library's own server
// session independently of our client wrapper.
func newSRPServerGroup(t *testing.T, identity string) *srp.SRP {
	group, err := srp.NewSRP(srpGroup, sha512.New, keyDerivativeFuncRFC2945(sha512.New, []byte(identity)))
	require.NoError(t, err)
	group.SaltLength = 16
	return group
}

func TestSRPClientAgreesWithLibraryServerSession(t *testing.T) {
	const identity = "Pair-Setup"
	const password = "0000-0000"

	group := newSRPServerGroup(t, identity)
	salt, verifier, err := group.ComputeVerifier([]byte(password))
	require.NoError(t, err)
	server := group.NewServerSession([]byte(identity), salt, verifier)

	client, err := NewSRPClientSession(identity, password)
	require.NoError(t, err)
	require.NoError(t, client.SetServerPublic(salt, server.GetB()))

	serverKey, err := server.ComputeKey(client.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, serverKey, client.SessionKey())

	assert.True(t, server.VerifyClientAuthenticator(client.ClientProof()))
	serverProof := server.ComputeAuthenticator(client.ClientProof())
	assert.True(t, client.VerifyServerProof(serverProof))
}

func TestSRPClientWrongPasswordFailsServerAuthentication(t *testing.T) {
	const identity = "Pair-Setup"

	group := newSRPServerGroup(t, identity)
	salt, verifier, err := group.ComputeVerifier([]byte("correct-pin"))
	require.NoError(t, err)
	server := group.NewServerSession([]byte(identity), salt, verifier)

	client, err := NewSRPClientSession(identity, "wrong-pin")
	require.NoError(t, err)
	require.NoError(t, client.SetServerPublic(salt, server.GetB()))

	_, err = server.ComputeKey(client.PublicKey())
	require.NoError(t, err)

	assert.False(t, server.VerifyClientAuthenticator(client.ClientProof()))
}

func TestSRPClientTwoSessionsHaveIndependentPublicKeys(t *testing.T) {
	a, err := NewSRPClientSession("Pair-Setup", "0000-0000")
	require.NoError(t, err)
	b, err := NewSRPClientSession("Pair-Setup", "0000-0000")
	require.NoError(t, err)
	assert.NotEqual(t, a.PublicKey(), b.PublicKey())
}
