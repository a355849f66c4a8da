// Package pairsetup implements the SRP-based pair-setup handshake
// (spec §4.5, component C8): M1 through M6, parameterized by a
// transport capability so the same state machine drives both the
// AirPlay (HTTP-over-socket) and Companion (compact-pack-over-frames)
// carriers (spec §9 design notes).
package pairsetup

import "github.com/arag0re/go-mrp-remote/tlv8"

// Transport abstracts the carrier a pairing TLV8 record travels over:
// the peer accepts a record and replies with a record, per spec §9's
// send_pairing_tlv/receive_pairing_tlv capability split.
type Transport interface {
	SendPairingTLV(items []tlv8.Item) error
	ReceivePairingTLV() (tlv8.Map, error)
}

// Exchange is the common case: send a record, then wait for the reply.
func Exchange(t Transport, items []tlv8.Item) (tlv8.Map, error) {
	if err := t.SendPairingTLV(items); err != nil {
		return nil, err
	}
	return t.ReceivePairingTLV()
}
