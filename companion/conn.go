package companion

import (
	"net"
	"sync"
	"time"

	"github.com/arag0re/go-mrp-remote/credentials"
	"github.com/arag0re/go-mrp-remote/framing"
	"github.com/arag0re/go-mrp-remote/mrperrors"
	"github.com/arag0re/go-mrp-remote/mrplog"
	"github.com/arag0re/go-mrp-remote/opack"
	"github.com/arag0re/go-mrp-remote/pairverify"
	"github.com/arag0re/go-mrp-remote/session"
)

// Conn is one Companion Link connection: a single TCP socket that
// performs framed pair-verify, then carries single-message AEAD-sealed
// compact-pack maps multiplexed by transfer identifier (spec §4.8,
// component C11).
type Conn struct {
	opts  Options
	creds *credentials.Credentials

	mu    sync.Mutex
	state State

	conn net.Conn
	sess *session.CompanionSession

	writeMu  sync.Mutex
	registry *transferRegistry

	buf []byte
}

// New returns a Conn ready to Dial, associated with creds obtained from
// a prior Companion-variant pair-setup.
func New(creds *credentials.Credentials, opts Options) *Conn {
	return &Conn{
		opts:     opts,
		creds:    creds,
		state:    StateDisconnected,
		registry: newTransferRegistry(),
	}
}

// State returns the connection's current state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	mrplog.Debugf("companion: state -> %s", s)
}

// Observe registers obs to be invoked for every inbound map that no
// pending request claims (spec §4.8 "unmatched inbound maps are
// delivered as events").
func (c *Conn) Observe(obs Observer) {
	c.registry.observe(obs)
}

// Dial opens the companion TCP connection, runs framed pair-verify
// inline, and starts the read loop, transitioning Disconnected -> ...
// -> Ready (spec §4.8).
func (c *Conn) Dial(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, c.opts.DialTimeout)
	if err != nil {
		return mrperrors.WithStage("tcp-open", mrperrors.Transport("%v", err))
	}
	c.conn = conn
	c.setState(StateTcpOpen)

	c.setState(StateVerifyInProgress)
	verifyTransport := &pairverify.CompanionTransport{Conn: conn}
	result, err := pairverify.Run(verifyTransport, c.creds, pairverify.VariantCompanion)
	if err != nil {
		c.fail()
		return mrperrors.WithStage("verify", err)
	}

	c.sess = session.NewCompanionSession(result.Keys.WriteKey, result.Keys.ReadKey)
	go c.serve()
	c.setState(StateReady)
	return nil
}

// Request sends body tagged with a fresh transfer identifier and
// blocks for the matching response (spec §4.8, §6 "_x"). When
// Options.ResponseTimeout is positive and elapses first, the pending
// request is cancelled and Request returns a Transport timeout error.
func (c *Conn) Request(identifier string, body opack.Map) (opack.Map, error) {
	x := c.registry.nextTransfer()
	m := append(opack.Map{}, body...)
	m = append(m, opack.MapEntry{Key: "_x", Value: x})
	if identifier != "" {
		m = append(m, opack.MapEntry{Key: "_i", Value: identifier})
	}

	p := c.registry.await(x)
	if err := c.send(m); err != nil {
		c.registry.cancel(x)
		return nil, err
	}
	if c.opts.ResponseTimeout > 0 {
		timer := time.AfterFunc(c.opts.ResponseTimeout, func() { c.registry.cancel(x) })
		defer timer.Stop()
	}
	return p.wait()
}

func (c *Conn) send(m opack.Map) error {
	payload, err := opack.Marshal(m)
	if err != nil {
		return mrperrors.ProtocolViolation("companion: marshal request: %v", err)
	}
	c.writeMu.Lock()
	frame := c.sess.Encrypt(payload)
	_, err = c.conn.Write(frame)
	c.writeMu.Unlock()
	if err != nil {
		return mrperrors.Transport("companion: write: %v", err)
	}
	return nil
}

// serve reads E_OPACK frames off the socket, decrypts each, and
// dispatches the decoded map to the transfer registry.
func (c *Conn) serve() {
	for {
		frames, remainder, err := framing.ParseCompanionFrames(c.buf)
		if err != nil {
			c.closeWithError(mrperrors.ProtocolViolation("companion: frame parse: %v", err))
			return
		}
		c.buf = remainder
		for _, frame := range frames {
			if !c.handleFrame(frame) {
				return
			}
		}

		chunk := make([]byte, 4096)
		n, err := c.conn.Read(chunk)
		if err != nil {
			c.closeWithError(mrperrors.Transport("companion channel closed: %v", err))
			return
		}
		c.buf = append(c.buf, chunk[:n]...)
	}
}

// handleFrame decodes and dispatches one frame, reporting whether the
// channel is still usable. A decrypt failure desyncs the receive
// counter for every subsequent frame (session.CompanionSession.Decrypt
// does not advance it on failure), so per spec §7 it is always fatal
// for the channel rather than a skippable frame.
func (c *Conn) handleFrame(frame framing.CompanionFrame) bool {
	if frame.Type != framing.CompanionFrameEncryptedOpack {
		mrplog.Debugf("companion: ignoring unexpected frame type 0x%02x", byte(frame.Type))
		return true
	}
	plaintext, err := c.sess.Decrypt(frame)
	if err != nil {
		c.closeWithError(mrperrors.ProtocolViolation("companion: frame decrypt failed: %v", err))
		return false
	}
	v, _, err := opack.Unmarshal(plaintext)
	if err != nil {
		c.closeWithError(mrperrors.ProtocolViolation("companion: payload decode failed: %v", err))
		return false
	}
	m, ok := v.(opack.Map)
	if !ok {
		c.closeWithError(mrperrors.ProtocolViolation("companion: payload is not a map"))
		return false
	}
	c.registry.dispatch(m)
	return true
}

func (c *Conn) closeWithError(err error) {
	mrplog.Debugf("companion: %v", err)
	c.registry.closeWithError(err)
}

// fail tears down the socket and transitions to Closing/Disconnected
// (spec §5 Resource release).
func (c *Conn) fail() {
	c.setState(StateClosing)
	c.Close()
}

// Close releases the socket and cancels every pending request.
func (c *Conn) Close() error {
	c.registry.closeWithError(mrperrors.Transport("connection closed"))
	if c.conn != nil {
		c.conn.Close()
	}
	c.setState(StateDisconnected)
	return nil
}
