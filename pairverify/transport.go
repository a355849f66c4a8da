// Package pairverify implements the HAP pair-verify handshake (spec
// §4.6, component C9): M1 through M4, parameterized by a transport
// capability in the same way as package pairsetup, so one state
// machine drives both the AirPlay and Companion carriers.
package pairverify

import "github.com/arag0re/go-mrp-remote/tlv8"

// Transport abstracts the carrier a pair-verify TLV8 record travels
// over.
type Transport interface {
	SendPairingTLV(items []tlv8.Item) error
	ReceivePairingTLV() (tlv8.Map, error)
}

// Exchange sends a record and waits for the reply.
func Exchange(t Transport, items []tlv8.Item) (tlv8.Map, error) {
	if err := t.SendPairingTLV(items); err != nil {
		return nil, err
	}
	return t.ReceivePairingTLV()
}

// Variant selects which fixed salt/info pair derives the two session
// keys pair-verify hands back (spec §4.6, §3).
type Variant int

const (
	// VariantAirPlay derives Control-Salt/Control-{Write,Read}-Encryption-Key.
	VariantAirPlay Variant = iota
	// VariantCompanion derives an empty salt and ClientEncrypt-main/ServerEncrypt-main.
	VariantCompanion
)

// Keys is the pair of session keys a completed pair-verify yields: one
// for each direction, already HKDF-derived and ready for an AEAD.
type Keys struct {
	WriteKey []byte
	ReadKey  []byte
}
