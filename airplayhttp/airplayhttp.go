// Package airplayhttp implements the plain HTTP/1.1-shaped request and
// response framing the AirPlay control connection uses both for
// pairing (plaintext, before encryption begins) and for RTSP traffic
// once the control HAP session wraps the same byte stream (spec §4.7,
// §6). It is adapted from the teacher repository's post/postData/
// readResponse helpers, generalized to arbitrary methods and headers
// and fixed to parse the status line once rather than per header line.
package airplayhttp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/arag0re/go-mrp-remote/mrplog"
)

// Request is a single HTTP/1.1-shaped request to write to a socket.
type Request struct {
	Method      string
	Target      string
	Headers     http.Header
	Body        []byte
	ContentType string
}

// Write serializes and sends req over conn.
func Write(conn io.Writer, req Request) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", req.Method, req.Target)
	if req.Headers.Get("User-Agent") == "" {
		b.WriteString("User-Agent: AirPlay/320.20\r\n")
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			fmt.Fprintf(&b, "%s: %s\r\n", k, v)
		}
	}
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(req.Body))
	if req.ContentType != "" {
		fmt.Fprintf(&b, "Content-Type: %s\r\n", req.ContentType)
	}
	b.WriteString("\r\n")
	mrplog.Debugf("-> %s %s (%d body bytes)", req.Method, req.Target, len(req.Body))
	if _, err := io.WriteString(conn, b.String()); err != nil {
		return err
	}
	if len(req.Body) == 0 {
		return nil
	}
	_, err := conn.Write(req.Body)
	return err
}

// Post is the common case: a POST with an optional content type and body.
func Post(conn io.ReadWriter, path, contentType string, body []byte) ([]byte, error) {
	if err := Write(conn, Request{Method: "POST", Target: path, Headers: http.Header{}, Body: body, ContentType: contentType}); err != nil {
		return nil, err
	}
	resp, err := ReadResponse(conn)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("airplayhttp: %s got status %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// ReadResponse parses one HTTP/1.1-shaped response off conn.
func ReadResponse(conn io.Reader) (*http.Response, error) {
	reader := bufio.NewReader(conn)

	statusLine, err := reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	statusParts := strings.SplitN(strings.TrimRight(statusLine, "\r\n"), " ", 3)
	if len(statusParts) < 2 {
		return nil, fmt.Errorf("airplayhttp: invalid status line: %q", statusLine)
	}
	statusCode, err := strconv.Atoi(statusParts[1])
	if err != nil {
		return nil, fmt.Errorf("airplayhttp: invalid status code in %q: %w", statusLine, err)
	}

	headers := make(http.Header)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		if line == "\r\n" || line == "\n" {
			break
		}
		parts := strings.SplitN(strings.TrimRight(line, "\r\n"), ": ", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("airplayhttp: invalid header line: %q", line)
		}
		headers.Add(parts[0], parts[1])
	}

	var body []byte
	if cl := headers.Get("Content-Length"); cl != "" {
		length, err := strconv.Atoi(strings.TrimSpace(cl))
		if err != nil {
			return nil, err
		}
		body = make([]byte, length)
		if _, err := io.ReadFull(reader, body); err != nil {
			return nil, err
		}
	}
	mrplog.Debugf("<- status %d (%d body bytes)", statusCode, len(body))
	return &http.Response{
		Status:        strings.TrimSpace(statusLine),
		StatusCode:    statusCode,
		Header:        headers,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}, nil
}
