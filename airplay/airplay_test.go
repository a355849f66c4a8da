package airplay

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arag0re/go-mrp-remote/plist"
)

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateDisconnected:   "disconnected",
		StateTcpOpen:        "tcp-open",
		StateVerifyComplete: "verify-complete",
		StateReadyCtrl:      "ready(ctrl)",
		StateReadyMRP:       "ready(mrp)",
		StateClosing:        "closing",
		State(99):           "unknown",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
}

func TestDefaultOptionsHasSaneTimeouts(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
	assert.Equal(t, 5*time.Second, opts.ResponseTimeout)
	assert.NotEmpty(t, opts.ClientInfo.Name)
}

func TestRTSPIdentityHeadersIncrementCSeq(t *testing.T) {
	id := newRTSPIdentity()
	h1 := id.headers()
	h2 := id.headers()
	assert.Equal(t, "1", h1.Get("CSeq"))
	assert.Equal(t, "2", h2.Get("CSeq"))
	assert.Equal(t, id.dacpID, h1.Get("DACP-ID"))
	assert.Equal(t, id.activeRemote, h1.Get("Active-Remote"))
}

func TestRTSPIdentityTarget(t *testing.T) {
	id := newRTSPIdentity()
	assert.Equal(t, "rtsp://"+id.sessionID, id.target())
}

func TestExtractCSeqFindsValue(t *testing.T) {
	req := []byte("OPTIONS rtsp://1 RTSP/1.0\r\nCSeq: 7\r\nContent-Length: 0\r\n\r\n")
	assert.Equal(t, "7", extractCSeq(req))
}

func TestExtractCSeqDefaultsToZeroWhenMissing(t *testing.T) {
	req := []byte("OPTIONS rtsp://1 RTSP/1.0\r\nContent-Length: 0\r\n\r\n")
	assert.Equal(t, "0", extractCSeq(req))
}

func TestSetupStreamBodyShape(t *testing.T) {
	body := setupStreamBody(110, 0, "chan-1", "client-1", 42, true)
	streams, ok := body["streams"].([]interface{})
	require.True(t, ok)
	require.Len(t, streams, 1)
	stream, ok := streams[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 110, stream["type"])
	assert.Equal(t, "chan-1", stream["channelID"])
	assert.Equal(t, int32(42), stream["seed"])
	assert.Equal(t, true, stream["wantsDedicatedSocket"])
	assert.Equal(t, clientTypeUUID, stream["clientTypeUUID"])
}

func TestParseStreamResponsePortExtractsDataPort(t *testing.T) {
	body := map[string]interface{}{
		"streams": []interface{}{
			map[string]interface{}{"dataPort": int64(7100)},
		},
	}
	encoded, err := plist.Marshal(body)
	require.NoError(t, err)

	port, err := parseStreamResponsePort(encoded)
	require.NoError(t, err)
	assert.Equal(t, 7100, port)
}

func TestParseStreamResponsePortRejectsMissingStreams(t *testing.T) {
	encoded, err := plist.Marshal(map[string]interface{}{})
	require.NoError(t, err)
	_, err = parseStreamResponsePort(encoded)
	assert.Error(t, err)
}

func TestParseStreamResponsePortRejectsMissingDataPort(t *testing.T) {
	body := map[string]interface{}{
		"streams": []interface{}{
			map[string]interface{}{},
		},
	}
	encoded, err := plist.Marshal(body)
	require.NoError(t, err)
	_, err = parseStreamResponsePort(encoded)
	assert.Error(t, err)
}

func TestRtspRequestRoundTripsOverPipe(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 4096)
		n, err := server.Read(buf)
		require.NoError(t, err)
		_ = n

		respBody := []byte("ok")
		resp := "RTSP/1.0 200 OK\r\nCSeq: 1\r\nContent-Length: " +
			itoa(len(respBody)) + "\r\n\r\n" + string(respBody)
		_, err = server.Write([]byte(resp))
		require.NoError(t, err)
	}()

	id := newRTSPIdentity()
	respBody, err := rtspRequest(client, id, "OPTIONS", id.target(), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), respBody)
	<-done
}

func TestRtspRequestPropagatesNonOKStatus(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 4096)
		_, err := server.Read(buf)
		require.NoError(t, err)
		_, err = server.Write([]byte("RTSP/1.0 453 Not Enough Bandwidth\r\nCSeq: 1\r\nContent-Length: 0\r\n\r\n"))
		require.NoError(t, err)
	}()

	id := newRTSPIdentity()
	_, err := rtspRequest(client, id, "SETUP", id.target(), nil)
	assert.Error(t, err)
	<-done
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
