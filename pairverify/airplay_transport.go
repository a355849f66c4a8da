package pairverify

import (
	"net"

	rtsphttp "github.com/arag0re/go-mrp-remote/airplayhttp"
	"github.com/arag0re/go-mrp-remote/tlv8"
)

// AirPlayTransport carries pair-verify TLV8 records as plaintext HTTP
// POST bodies to /pair-verify on the same connection that will shortly
// be upgraded to an encrypted HAP session (spec §4.6, §6).
type AirPlayTransport struct {
	Conn net.Conn

	pending []byte
}

func (t *AirPlayTransport) SendPairingTLV(items []tlv8.Item) error {
	t.pending = tlv8.Encode(items)
	return nil
}

func (t *AirPlayTransport) ReceivePairingTLV() (tlv8.Map, error) {
	body, err := rtsphttp.Post(t.Conn, "/pair-verify", "application/octet-stream", t.pending)
	if err != nil {
		return nil, err
	}
	return tlv8.DecodeMap(body)
}
