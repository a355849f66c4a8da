package pairsetup

import (
	"net"

	rtsphttp "github.com/arag0re/go-mrp-remote/airplayhttp"
	"github.com/arag0re/go-mrp-remote/tlv8"
)

// AirPlayTransport carries pair-setup TLV8 records as plaintext HTTP
// POST bodies to /pair-setup on a persistent TCP connection, after an
// initial POST to /pair-pin-start triggers PIN display (spec §4.5, §6).
type AirPlayTransport struct {
	Conn net.Conn

	pending []byte
}

// StartPIN issues the empty POST /pair-pin-start request that makes
// the device show its pairing PIN.
func (t *AirPlayTransport) StartPIN() error {
	_, err := rtsphttp.Post(t.Conn, "/pair-pin-start", "", nil)
	return err
}

func (t *AirPlayTransport) SendPairingTLV(items []tlv8.Item) error {
	t.pending = tlv8.Encode(items)
	return nil
}

func (t *AirPlayTransport) ReceivePairingTLV() (tlv8.Map, error) {
	body, err := rtsphttp.Post(t.Conn, "/pair-setup", "application/octet-stream", t.pending)
	if err != nil {
		return nil, err
	}
	return tlv8.DecodeMap(body)
}
