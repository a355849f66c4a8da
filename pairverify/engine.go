package pairverify

import (
	"crypto/ed25519"

	cryptoutil "github.com/arag0re/go-mrp-remote/crypto"
	"github.com/arag0re/go-mrp-remote/credentials"
	"github.com/arag0re/go-mrp-remote/mrperrors"
	"github.com/arag0re/go-mrp-remote/mrplog"
	"github.com/arag0re/go-mrp-remote/tlv8"
)

var (
	nonceMsg02 = [12]byte{0, 0, 0, 0, 'P', 'V', '-', 'M', 's', 'g', '0', '2'}
	nonceMsg03 = [12]byte{0, 0, 0, 0, 'P', 'V', '-', 'M', 's', 'g', '0', '3'}
)

// Result is what a completed pair-verify yields: the session keys for
// the requested variant, plus the raw ECDH shared secret so a caller
// that owns multiple channels (AirPlay's event and data sockets) can
// derive further channel-specific keys from the same handshake
// without re-running it.
type Result struct {
	Keys         *Keys
	SharedSecret []byte
}

// Run drives M1..M4 over t against the long-term credentials creds,
// returning the two derived session keys appropriate to variant (spec
// §4.6, §3). Every error is terminal for the connection (spec §7).
func Run(t Transport, creds *credentials.Credentials, variant Variant) (*Result, error) {
	clientPriv, clientPub := cryptoutil.GenerateX25519()

	var m1 tlv8.Builder
	m1.AddByte(tlv8.TagSequence, 1)
	m1.Add(tlv8.TagPublicKey, clientPub.Bytes())
	m2, err := Exchange(t, m1.Items())
	if err != nil {
		return nil, mrperrors.Transport("pair-verify M1: %v", err)
	}
	if err := rejectPeerError(m2); err != nil {
		return nil, err
	}

	serverPubRaw, ok := m2.Get(tlv8.TagPublicKey)
	if !ok {
		return nil, mrperrors.ProtocolViolation("pair-verify M2 missing PublicKey")
	}
	serverEncrypted, ok := m2.Get(tlv8.TagEncryptedData)
	if !ok {
		return nil, mrperrors.ProtocolViolation("pair-verify M2 missing EncryptedData")
	}
	serverPub := cryptoutil.ParseX25519PublicKey(serverPubRaw)

	sharedSecret := cryptoutil.SharedSecret(&clientPriv, &serverPub)
	verifyKey := cryptoutil.DeriveKey(sharedSecret, cryptoutil.SaltPairVerifyEncrypt, cryptoutil.InfoPairVerifyEncrypt)
	aead := cryptoutil.MustNewAEAD(verifyKey)

	serverSubTLV, err := aead.Open(nil, nonceMsg02[:], serverEncrypted, nil)
	if err != nil {
		return nil, mrperrors.Cryptographic("pair-verify M2 AEAD open failed: %v", err)
	}
	serverSub, err := tlv8.DecodeMap(serverSubTLV)
	if err != nil {
		return nil, mrperrors.ProtocolViolation("pair-verify M2 sub-TLV decode: %v", err)
	}
	serverIdentifier, ok := serverSub.Get(tlv8.TagIdentifier)
	if !ok {
		return nil, mrperrors.ProtocolViolation("pair-verify M2 sub-TLV missing Identifier")
	}
	serverSignature, ok := serverSub.Get(tlv8.TagSignature)
	if !ok {
		return nil, mrperrors.ProtocolViolation("pair-verify M2 sub-TLV missing Signature")
	}
	if string(serverIdentifier) != creds.ServerIdentifier {
		return nil, mrperrors.ProtocolViolation("pair-verify M2 identifier %q does not match stored %q", serverIdentifier, creds.ServerIdentifier)
	}
	serverSignPayload := concat(serverPubRaw, serverIdentifier, clientPub.Bytes())
	if !ed25519.Verify(creds.ServerPublicKey, serverSignPayload, serverSignature) {
		return nil, mrperrors.Cryptographic("pair-verify server signature verification failed")
	}

	clientSignPayload := concat(clientPub.Bytes(), []byte(creds.ClientIdentifier), serverPubRaw)
	clientSignature := ed25519.Sign(creds.ClientPrivateKey, clientSignPayload)
	clientSubTLV := tlv8.Encode([]tlv8.Item{
		{Tag: tlv8.TagIdentifier, Value: []byte(creds.ClientIdentifier)},
		{Tag: tlv8.TagSignature, Value: clientSignature},
	})
	clientEncrypted := aead.Seal(nil, nonceMsg03[:], clientSubTLV, nil)

	var m3 tlv8.Builder
	m3.AddByte(tlv8.TagSequence, 3)
	m3.Add(tlv8.TagEncryptedData, clientEncrypted)
	m4, err := Exchange(t, m3.Items())
	if err != nil {
		return nil, mrperrors.Transport("pair-verify M3: %v", err)
	}
	if err := rejectPeerError(m4); err != nil {
		return nil, err
	}

	mrplog.Infof("pair-verify complete")
	return &Result{Keys: deriveSessionKeys(sharedSecret, variant), SharedSecret: sharedSecret}, nil
}

// DeriveKeys derives an arbitrary further pair of directional keys
// from a completed handshake's shared secret, for channels beyond the
// one Run's variant already covers (the AirPlay event and data
// sockets reuse the control pair-verify's shared secret with their
// own salts, spec §4.7).
func DeriveKeys(sharedSecret []byte, salt, writeInfo, readInfo string) *Keys {
	return &Keys{
		WriteKey: cryptoutil.DeriveKey(sharedSecret, salt, writeInfo),
		ReadKey:  cryptoutil.DeriveKey(sharedSecret, salt, readInfo),
	}
}

func deriveSessionKeys(sharedSecret []byte, variant Variant) *Keys {
	switch variant {
	case VariantCompanion:
		return &Keys{
			WriteKey: cryptoutil.DeriveKey(sharedSecret, "", cryptoutil.InfoClientEncryptMain),
			ReadKey:  cryptoutil.DeriveKey(sharedSecret, "", cryptoutil.InfoServerEncryptMain),
		}
	default:
		return &Keys{
			WriteKey: cryptoutil.DeriveKey(sharedSecret, cryptoutil.SaltControl, cryptoutil.InfoControlWrite),
			ReadKey:  cryptoutil.DeriveKey(sharedSecret, cryptoutil.SaltControl, cryptoutil.InfoControlRead),
		}
	}
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
