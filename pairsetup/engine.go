package pairsetup

import (
	"crypto/ed25519"

	"github.com/google/uuid"

	srp "github.com/arag0re/go-mrp-remote/crypto"
	"github.com/arag0re/go-mrp-remote/credentials"
	"github.com/arag0re/go-mrp-remote/mrperrors"
	"github.com/arag0re/go-mrp-remote/mrplog"
	"github.com/arag0re/go-mrp-remote/tlv8"
)

// setupIdentity is the fixed SRP username pair-setup authenticates
// against (spec §4.5).
const setupIdentity = "Pair-Setup"

// nonce constants for the two EncryptedData sub-messages, each the
// ASCII tag zero-padded to the AEAD's 12-byte nonce width.
var (
	nonceMsg05 = [12]byte{0, 0, 0, 0, 'P', 'S', '-', 'M', 's', 'g', '0', '5'}
	nonceMsg06 = [12]byte{0, 0, 0, 0, 'P', 'S', '-', 'M', 's', 'g', '0', '6'}
)

// Run drives the full M1..M6 pair-setup exchange over t, using pin as
// the SRP setup code, and returns the durable credentials it yields.
// Every error here is terminal for the connection (spec §7).
func Run(t Transport, pin string) (*credentials.Credentials, error) {
	clientID := uuid.NewString()
	clientPub, clientPriv := srp.GenerateEd25519()

	// M1: client -> server
	var m1 tlv8.Builder
	m1.AddByte(tlv8.TagMethod, 0)
	m1.AddByte(tlv8.TagSequence, 1)
	m2, err := Exchange(t, m1.Items())
	if err != nil {
		return nil, mrperrors.Transport("pair-setup M1: %v", err)
	}
	if err := rejectPeerError(m2); err != nil {
		return nil, err
	}

	salt, ok := m2.Get(tlv8.TagSalt)
	if !ok {
		return nil, mrperrors.ProtocolViolation("pair-setup M2 missing Salt")
	}
	serverPub, ok := m2.Get(tlv8.TagPublicKey)
	if !ok {
		return nil, mrperrors.ProtocolViolation("pair-setup M2 missing PublicKey")
	}

	srpSession, err := srp.NewSRPClientSession(setupIdentity, pin)
	if err != nil {
		return nil, mrperrors.Cryptographic("pair-setup SRP init: %v", err)
	}
	if err := srpSession.SetServerPublic(salt, serverPub); err != nil {
		return nil, mrperrors.Cryptographic("pair-setup SRP derive: %v", err)
	}

	// M3: client -> server
	var m3 tlv8.Builder
	m3.AddByte(tlv8.TagSequence, 3)
	m3.Add(tlv8.TagPublicKey, srpSession.PublicKey())
	m3.Add(tlv8.TagProof, srpSession.ClientProof())
	m4, err := Exchange(t, m3.Items())
	if err != nil {
		return nil, mrperrors.Transport("pair-setup M3: %v", err)
	}
	if err := rejectPeerError(m4); err != nil {
		return nil, err
	}
	serverProof, ok := m4.Get(tlv8.TagProof)
	if !ok {
		return nil, mrperrors.ProtocolViolation("pair-setup M4 missing Proof")
	}
	if !srpSession.VerifyServerProof(serverProof) {
		return nil, mrperrors.Cryptographic("pair-setup SRP server proof mismatch")
	}

	sharedSecret := srpSession.SessionKey()
	signingMaterial := srp.DeriveKey(sharedSecret, srp.SaltPairSetupControllerSign, srp.InfoPairSetupControllerSign)
	signPayload := concat(signingMaterial, []byte(clientID), clientPub)
	signature := ed25519.Sign(clientPriv, signPayload)

	subItems := []tlv8.Item{
		{Tag: tlv8.TagIdentifier, Value: []byte(clientID)},
		{Tag: tlv8.TagPublicKey, Value: clientPub},
		{Tag: tlv8.TagSignature, Value: signature},
	}
	subTLV := tlv8.Encode(subItems)

	encryptKey := srp.DeriveKey(sharedSecret, srp.SaltPairSetupEncrypt, srp.InfoPairSetupEncrypt)
	aead := srp.MustNewAEAD(encryptKey)
	encrypted := aead.Seal(nil, nonceMsg05[:], subTLV, nil)

	var m5 tlv8.Builder
	m5.AddByte(tlv8.TagSequence, 5)
	m5.Add(tlv8.TagEncryptedData, encrypted)
	m6, err := Exchange(t, m5.Items())
	if err != nil {
		return nil, mrperrors.Transport("pair-setup M5: %v", err)
	}
	if err := rejectPeerError(m6); err != nil {
		return nil, err
	}
	serverEncrypted, ok := m6.Get(tlv8.TagEncryptedData)
	if !ok {
		return nil, mrperrors.ProtocolViolation("pair-setup M6 missing EncryptedData")
	}
	serverSubTLV, err := aead.Open(nil, nonceMsg06[:], serverEncrypted, nil)
	if err != nil {
		return nil, mrperrors.Cryptographic("pair-setup M6 AEAD open failed: %v", err)
	}
	serverSub, err := tlv8.DecodeMap(serverSubTLV)
	if err != nil {
		return nil, mrperrors.ProtocolViolation("pair-setup M6 sub-TLV decode: %v", err)
	}
	serverIdentifier, ok := serverSub.Get(tlv8.TagIdentifier)
	if !ok {
		return nil, mrperrors.ProtocolViolation("pair-setup M6 sub-TLV missing Identifier")
	}
	serverLTPK, ok := serverSub.Get(tlv8.TagPublicKey)
	if !ok {
		return nil, mrperrors.ProtocolViolation("pair-setup M6 sub-TLV missing PublicKey")
	}
	serverSignature, ok := serverSub.Get(tlv8.TagSignature)
	if !ok {
		return nil, mrperrors.ProtocolViolation("pair-setup M6 sub-TLV missing Signature")
	}
	serverSignPayload := concat(signingMaterial, serverIdentifier, serverLTPK)
	if !ed25519.Verify(ed25519.PublicKey(serverLTPK), serverSignPayload, serverSignature) {
		return nil, mrperrors.Cryptographic("pair-setup server signature verification failed")
	}

	mrplog.Infof("pair-setup complete, server identifier %s", serverIdentifier)
	return &credentials.Credentials{
		ClientIdentifier: clientID,
		ClientPrivateKey: clientPriv,
		ClientPublicKey:  clientPub,
		ServerPublicKey:  ed25519.PublicKey(serverLTPK),
		ServerIdentifier: string(serverIdentifier),
	}, nil
}

func rejectPeerError(m tlv8.Map) error {
	if v, ok := m.Get(tlv8.TagError); ok && len(v) > 0 && v[0] != 0 {
		return mrperrors.PeerError(v[0])
	}
	return nil
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
