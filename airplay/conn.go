package airplay

import (
	"fmt"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	cryptoprim "github.com/arag0re/go-mrp-remote/crypto"
	"github.com/arag0re/go-mrp-remote/credentials"
	"github.com/arag0re/go-mrp-remote/datastream"
	"github.com/arag0re/go-mrp-remote/framing"
	"github.com/arag0re/go-mrp-remote/mrp"
	"github.com/arag0re/go-mrp-remote/mrperrors"
	"github.com/arag0re/go-mrp-remote/mrplog"
	"github.com/arag0re/go-mrp-remote/pairverify"
	"github.com/arag0re/go-mrp-remote/plist"
	"github.com/arag0re/go-mrp-remote/session"
)

// Conn is one AirPlay connection: a control socket plus the event and
// data sockets it brings up during connect, each with its own HAP
// session (spec §4.7, §5).
type Conn struct {
	opts  Options
	creds *credentials.Credentials

	mu    sync.Mutex
	state State

	ctrlMu    sync.Mutex
	ctrlConn  net.Conn
	ctrlSess  *session.HAPSession
	ctrlEnc   *session.EncryptedConn
	ctrlIdent *rtspIdentity

	eventConn net.Conn
	eventSess *session.HAPSession

	dataWriteMu sync.Mutex
	dataConn    net.Conn
	dataSess    *session.HAPSession

	dataSequence uint64
	registry     *mrp.Registry

	heartbeatStop chan struct{}
}

// New returns a Conn ready to Dial, associated with creds obtained
// from a prior pair-setup.
func New(creds *credentials.Credentials, opts Options) *Conn {
	return &Conn{
		opts:     opts,
		creds:    creds,
		state:    StateDisconnected,
		registry: mrp.NewRegistry(),
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
	mrplog.Debugf("airplay: state -> %s", s)
}

// Observe registers obs to be invoked for every inbound MRP envelope
// decoded on the data channel (spec §9 event-emitter semantics).
func (c *Conn) Observe(obs mrp.Observer) {
	c.registry.Observe(obs)
}

// Dial opens the control TCP connection, runs pair-verify inline,
// brings up the event and data sockets, starts the heartbeat, and
// drives MRP init, transitioning Disconnected -> ... -> Ready(mrp).
// Any failure tears everything down and leaves the connection
// Closing/Disconnected (spec §4.7, §5).
func (c *Conn) Dial(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, c.opts.DialTimeout)
	if err != nil {
		return mrperrors.WithStage("tcp-open", mrperrors.Transport("%v", err))
	}
	c.ctrlConn = conn
	c.setState(StateTcpOpen)

	verifyTransport := &pairverify.AirPlayTransport{Conn: conn}
	result, err := pairverify.Run(verifyTransport, c.creds, pairverify.VariantAirPlay)
	if err != nil {
		c.fail()
		return mrperrors.WithStage("verify", err)
	}
	c.setState(StateVerifyComplete)

	c.ctrlSess = session.NewHAPSession(result.Keys.WriteKey, result.Keys.ReadKey)
	c.ctrlEnc = &session.EncryptedConn{Conn: conn, Session: c.ctrlSess}
	c.ctrlIdent = newRTSPIdentity()
	c.setState(StateReadyCtrl)

	eventPort, eventKeys, err := c.setupEventChannel(result.SharedSecret)
	if err != nil {
		c.fail()
		return mrperrors.WithStage("setup-event", err)
	}
	if err := c.openEventSocket(addr, eventPort, eventKeys); err != nil {
		c.fail()
		return mrperrors.WithStage("setup-event", err)
	}

	if _, err := c.ctrlRequest("RECORD", c.ctrlIdent.target(), nil); err != nil {
		c.fail()
		return mrperrors.WithStage("record", err)
	}

	c.startHeartbeat()

	dataPort, dataKeys, err := c.setupDataChannel(result.SharedSecret)
	if err != nil {
		c.fail()
		return mrperrors.WithStage("setup-data", err)
	}
	if err := c.openDataSocket(addr, dataPort, dataKeys); err != nil {
		c.fail()
		return mrperrors.WithStage("setup-data", err)
	}

	if err := c.mrpInit(); err != nil {
		c.fail()
		return mrperrors.WithStage("mrp-init", err)
	}

	c.setState(StateReadyMRP)
	return nil
}

// ctrlRequest serializes an RTSP request against the control socket so
// the bring-up sequence and the heartbeat goroutine never interleave
// frames on the same encrypted session (spec §5).
func (c *Conn) ctrlRequest(method, target string, bodyValue interface{}) ([]byte, error) {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()
	return rtspRequest(c.ctrlEnc, c.ctrlIdent, method, target, bodyValue)
}

func (c *Conn) setupEventChannel(sharedSecret []byte) (port int, keys *pairverify.Keys, err error) {
	channelID := uuid.NewString()
	clientUUID := uuid.NewString()
	body := setupStreamBody(110, 0, channelID, clientUUID, 0, false)
	respData, err := c.ctrlRequest("SETUP", c.ctrlIdent.target(), body)
	if err != nil {
		return 0, nil, err
	}
	p, err := parseStreamResponsePort(respData)
	if err != nil {
		return 0, nil, err
	}
	keys = pairverify.DeriveKeys(sharedSecret, cryptoprim.SaltEvents, cryptoprim.InfoEventsWrite, cryptoprim.InfoEventsRead)
	return p, keys, nil
}

func (c *Conn) setupDataChannel(sharedSecret []byte) (port int, keys *pairverify.Keys, err error) {
	channelID := uuid.NewString()
	clientUUID := uuid.NewString()
	seed := int32(rand.Uint32() & 0x7fffffff)
	body := setupStreamBody(130, 2, channelID, clientUUID, seed, true)
	respData, err := c.ctrlRequest("SETUP", c.ctrlIdent.target(), body)
	if err != nil {
		return 0, nil, err
	}
	p, err := parseStreamResponsePort(respData)
	if err != nil {
		return 0, nil, err
	}
	salt := cryptoprim.DataStreamSalt(seed)
	keys = pairverify.DeriveKeys(sharedSecret, salt, cryptoprim.InfoDataStreamOutput, cryptoprim.InfoDataStreamInput)
	c.dataSequence = datastream.NewSequence()
	return p, keys, nil
}

func (c *Conn) openEventSocket(addr string, port int, keys *pairverify.Keys) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return mrperrors.Configuration("airplay: invalid address %q: %v", addr, err)
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, fmt.Sprintf("%d", port)), c.opts.DialTimeout)
	if err != nil {
		return mrperrors.Transport("airplay: dial event socket: %v", err)
	}
	c.eventConn = conn
	c.eventSess = session.NewHAPSession(keys.WriteKey, keys.ReadKey)
	go c.serveEventSocket()
	return nil
}

func (c *Conn) openDataSocket(addr string, port int, keys *pairverify.Keys) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return mrperrors.Configuration("airplay: invalid address %q: %v", addr, err)
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, fmt.Sprintf("%d", port)), c.opts.DialTimeout)
	if err != nil {
		return mrperrors.Transport("airplay: dial data socket: %v", err)
	}
	c.dataConn = conn
	c.dataSess = session.NewHAPSession(keys.WriteKey, keys.ReadKey)
	go c.serveDataSocket()
	return nil
}

// serveEventSocket answers inbound encrypted RTSP-shaped requests
// with a minimal 200 OK, per spec §4.7 event socket discipline.
func (c *Conn) serveEventSocket() {
	enc := &session.EncryptedConn{Conn: c.eventConn, Session: c.eventSess}
	for {
		frame, err := framing.ReadHAPFrame(c.eventConn)
		if err != nil {
			mrplog.Debugf("airplay: event socket closed: %v", err)
			return
		}
		plaintext, err := c.eventSess.DecryptFrame(frame)
		if err != nil {
			mrplog.Errorf("airplay: event frame decrypt failed: %v", err)
			return
		}
		cseq := extractCSeq(plaintext)
		resp := "RTSP/1.0 200 OK\r\nCSeq: " + cseq + "\r\nServer: AirTunes/320.17\r\nContent-Length: 0\r\n\r\n"
		if _, err := enc.Write([]byte(resp)); err != nil {
			mrplog.Errorf("airplay: event response write failed: %v", err)
			return
		}
	}
}

// serveDataSocket reads DataStream frames off the data socket,
// acknowledges sync frames, absorbs reply frames, and dispatches any
// carried MRP envelope to the registry (spec §4.4, §4.9).
func (c *Conn) serveDataSocket() {
	enc := &session.EncryptedConn{Conn: c.dataConn, Session: c.dataSess}
	var buf []byte
	chunk := make([]byte, 4096)
	for {
		n, err := enc.Read(chunk)
		if err != nil {
			mrplog.Debugf("airplay: data socket closed: %v", err)
			c.registry.CloseWithError(mrperrors.Transport("data channel closed: %v", err))
			return
		}
		buf = append(buf, chunk[:n]...)
		for {
			frame, consumed, err := framing.ParseDataStreamFrame(buf)
			if err != nil {
				break
			}
			buf = buf[consumed:]
			c.handleDataStreamFrame(enc, frame)
		}
	}
}

func (c *Conn) handleDataStreamFrame(enc *session.EncryptedConn, frame framing.DataStreamFrame) {
	if datastream.IsReply(frame) {
		return
	}
	if !datastream.IsSync(frame) {
		return
	}
	reply := datastream.BuildReply(frame.Sequence)
	c.dataWriteMu.Lock()
	_, err := enc.Write(reply)
	c.dataWriteMu.Unlock()
	if err != nil {
		mrplog.Errorf("airplay: datastream reply write failed: %v", err)
	}
	envelopeBytes, err := datastream.UnwrapEnvelope(frame.Payload)
	if err != nil {
		mrplog.Errorf("airplay: datastream payload unwrap failed: %v", err)
		return
	}
	env, err := mrp.Decode(envelopeBytes)
	if err != nil {
		mrplog.Errorf("airplay: mrp envelope decode failed: %v", err)
		return
	}
	c.registry.Dispatch(env)
}

// sendMRP wraps payload in an envelope, frames it as a DataStream sync
// message, and writes it to the data socket.
func (c *Conn) sendMRP(t mrp.Type, identifier string, payload []byte) error {
	env := mrp.Envelope{Type: t, Identifier: identifier, Payload: payload}
	frame, err := datastream.BuildSync(c.dataSequence, mrp.Encode(env))
	if err != nil {
		return err
	}
	enc := &session.EncryptedConn{Conn: c.dataConn, Session: c.dataSess}
	c.dataWriteMu.Lock()
	_, err = enc.Write(frame)
	c.dataWriteMu.Unlock()
	return err
}

// mrpInit drives the bring-up dialogue of spec §4.7: DeviceInfo
// exchange, SetConnectionState, ClientUpdatesConfig (which requests
// keyboard-session updates in lieu of a separate GetKeyboardSession
// message that has no assigned wire type), then a short settle
// interval.
func (c *Conn) mrpInit() error {
	filter := mrp.TypeDeviceInfo
	waiter := c.registry.Await(&filter)
	if err := c.sendMRP(mrp.TypeDeviceInfo, uuid.NewString(), mrp.DeviceInfo(c.opts.ClientInfo)); err != nil {
		c.registry.Cancel(waiter)
		return err
	}
	if c.opts.ResponseTimeout > 0 {
		timer := time.AfterFunc(c.opts.ResponseTimeout, func() { c.registry.Cancel(waiter) })
		defer timer.Stop()
	}
	if _, err := waiter.Wait(); err != nil {
		return err
	}

	if err := c.sendMRP(mrp.TypeSetConnectionState, uuid.NewString(), mrp.SetConnectionState(mrp.ConnectionStateConnected)); err != nil {
		return err
	}

	updatesPayload := mrp.ClientUpdatesConfig(mrp.ClientUpdatesConfigOptions{
		ArtworkUpdates:    true,
		NowPlayingUpdates: true,
		VolumeUpdates:     true,
		KeyboardUpdates:   true,
	})
	if err := c.sendMRP(mrp.TypeClientUpdatesConfig, uuid.NewString(), updatesPayload); err != nil {
		return err
	}

	time.Sleep(500 * time.Millisecond)
	return nil
}

func (c *Conn) startHeartbeat() {
	c.heartbeatStop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := c.ctrlRequest("POST", "/feedback", nil); err != nil {
					mrplog.Errorf("airplay: heartbeat failed: %v", err)
				}
			case <-c.heartbeatStop:
				return
			}
		}
	}()
}

// fail tears down every socket and transitions to Closing/Disconnected
// (spec §5 Resource release).
func (c *Conn) fail() {
	c.setState(StateClosing)
	c.Close()
}

// Close releases every socket and timer and cancels pending MRP
// waiters.
func (c *Conn) Close() error {
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
	c.registry.CloseWithError(mrperrors.Transport("connection closed"))
	if c.dataConn != nil {
		c.dataConn.Close()
	}
	if c.eventConn != nil {
		c.eventConn.Close()
	}
	if c.ctrlConn != nil {
		c.ctrlConn.Close()
	}
	c.setState(StateDisconnected)
	return nil
}

// PressKey sends the down/up SendHIDEvent pair for k, waiting delay
// between them, followed by an empty GenericMessage flush (spec
// §4.9).
func (c *Conn) PressKey(k mrp.Key, longPress bool) error {
	page, usageCode, ok := mrp.Usage(k)
	if !ok {
		return mrperrors.ProtocolViolation("airplay: unrecognized key %q", k)
	}
	delay := mrp.KeyPressDelay
	if longPress {
		delay = mrp.LongKeyPressDelay
	}
	if err := c.sendMRP(mrp.TypeSendHIDEvent, uuid.NewString(), mrp.SendHIDEvent(page, usageCode, true)); err != nil {
		return err
	}
	time.Sleep(delay)
	if err := c.sendMRP(mrp.TypeSendHIDEvent, uuid.NewString(), mrp.SendHIDEvent(page, usageCode, false)); err != nil {
		return err
	}
	return c.sendMRP(mrp.TypeGenericMessage, uuid.NewString(), mrp.GenericMessage())
}

func extractCSeq(request []byte) string {
	const marker = "CSeq:"
	idx := strings.Index(string(request), marker)
	if idx < 0 {
		return "0"
	}
	rest := string(request)[idx+len(marker):]
	if end := strings.Index(rest, "\r\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// parseStreamResponsePort extracts streams[0].dataPort from a SETUP
// response body (spec §4.7).
func parseStreamResponsePort(plistBytes []byte) (int, error) {
	m, err := plist.ParseMap(plistBytes)
	if err != nil {
		return 0, mrperrors.ProtocolViolation("airplay: parse SETUP response: %v", err)
	}
	streams, ok := m["streams"].([]interface{})
	if !ok || len(streams) == 0 {
		return 0, mrperrors.ProtocolViolation("airplay: SETUP response missing streams")
	}
	stream, ok := streams[0].(map[string]interface{})
	if !ok {
		return 0, mrperrors.ProtocolViolation("airplay: SETUP response stream entry malformed")
	}
	port, ok := stream["dataPort"]
	if !ok {
		return 0, mrperrors.ProtocolViolation("airplay: SETUP response missing dataPort")
	}
	switch v := port.(type) {
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, mrperrors.ProtocolViolation("airplay: dataPort has unexpected type %T", port)
	}
}
