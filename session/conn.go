package session

import (
	"io"
	"net"

	"github.com/arag0re/go-mrp-remote/framing"
)

// EncryptedConn wraps a raw socket and a HAPSession so the rest of the
// client can read and write plaintext bytes while every byte crossing
// the wire is chunked, sealed, and reassembled per spec §4.3. It
// satisfies io.ReadWriteCloser so the plain-HTTP request/response
// helpers built for pairing (package airplayhttp) work unmodified on
// an encrypted control/event/data channel.
type EncryptedConn struct {
	Conn    net.Conn
	Session *HAPSession

	readBuf []byte
}

// Write encrypts p into one or more HAP frames and writes them.
func (c *EncryptedConn) Write(p []byte) (int, error) {
	for _, frame := range c.Session.EncryptFrames(p) {
		if _, err := c.Conn.Write(frame); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Read decrypts and returns the next chunk of plaintext, reading and
// decrypting one full HAP frame from the socket if its buffer is
// empty.
func (c *EncryptedConn) Read(p []byte) (int, error) {
	if len(c.readBuf) == 0 {
		frame, err := framing.ReadHAPFrame(c.Conn)
		if err != nil {
			return 0, err
		}
		plaintext, err := c.Session.DecryptFrame(frame)
		if err != nil {
			return 0, err
		}
		c.readBuf = plaintext
	}
	n := copy(p, c.readBuf)
	c.readBuf = c.readBuf[n:]
	return n, nil
}

// Close closes the underlying socket.
func (c *EncryptedConn) Close() error { return c.Conn.Close() }

var _ io.ReadWriteCloser = (*EncryptedConn)(nil)
