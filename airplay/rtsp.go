package airplay

import (
	"fmt"
	"math/rand"
	"net/http"

	"github.com/arag0re/go-mrp-remote/airplayhttp"
	"github.com/arag0re/go-mrp-remote/mrperrors"
	"github.com/arag0re/go-mrp-remote/plist"
)

// rtspIdentity holds the per-connection identifiers every RTSP request
// carries (spec §4.7, §6).
type rtspIdentity struct {
	sessionID    string
	dacpID       string
	activeRemote string
	cseq         int
}

func newRTSPIdentity() *rtspIdentity {
	return &rtspIdentity{
		sessionID:    fmt.Sprintf("%d", rand.Uint32()),
		dacpID:       fmt.Sprintf("%016X", rand.Uint64()),
		activeRemote: fmt.Sprintf("%d", rand.Uint32()),
	}
}

func (id *rtspIdentity) nextCSeq() int {
	id.cseq++
	return id.cseq
}

func (id *rtspIdentity) headers() http.Header {
	h := http.Header{}
	h.Set("DACP-ID", id.dacpID)
	h.Set("Active-Remote", id.activeRemote)
	h.Set("Client-Instance", id.dacpID)
	h.Set("CSeq", fmt.Sprintf("%d", id.nextCSeq()))
	return h
}

func (id *rtspIdentity) target() string {
	return "rtsp://" + id.sessionID
}

// rtspConn is the minimal interface rtspRequest needs; Conn passes its
// *session.EncryptedConn, and a raw net.Conn satisfies it as well.
type rtspConn interface {
	Read([]byte) (int, error)
	Write([]byte) (int, error)
}

// rtspRequest posts method/target with an optional property-list body
// over conn (Conn always passes the control channel's
// session.EncryptedConn, installed after pair-verify) and returns the
// parsed response body.
func rtspRequest(conn rtspConn, id *rtspIdentity, method, target string, bodyValue interface{}) ([]byte, error) {
	var body []byte
	var contentType string
	if bodyValue != nil {
		var err error
		body, err = plist.Marshal(bodyValue)
		if err != nil {
			return nil, mrperrors.ProtocolViolation("airplay: marshal %s body: %v", method, err)
		}
		contentType = "application/x-apple-binary-plist"
	}
	req := airplayhttp.Request{
		Method:      method,
		Target:      target,
		Headers:     id.headers(),
		Body:        body,
		ContentType: contentType,
	}
	if err := airplayhttp.Write(conn, req); err != nil {
		return nil, mrperrors.Transport("airplay: write %s: %v", method, err)
	}
	resp, err := airplayhttp.ReadResponse(conn)
	if err != nil {
		return nil, mrperrors.Transport("airplay: read %s response: %v", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, mrperrors.ProtocolViolation("airplay: %s got status %d", method, resp.StatusCode)
	}
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			break
		}
	}
	return buf, nil
}

const clientTypeUUID = "1910A70F-DBC0-4242-AF95-115DB30604E1"

func setupStreamBody(streamType, controlType int, channelID, clientUUID string, seed int32, dedicated bool) map[string]interface{} {
	stream := map[string]interface{}{
		"type":                 streamType,
		"controlType":          controlType,
		"channelID":            channelID,
		"seed":                 seed,
		"clientUUID":           clientUUID,
		"wantsDedicatedSocket": dedicated,
		"clientTypeUUID":       clientTypeUUID,
	}
	return map[string]interface{}{"streams": []interface{}{stream}}
}
