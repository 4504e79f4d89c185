// File: http1/request.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package http1

import (
	"bufio"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/momentics/edgeproxy/api"
)

// ErrMalformedRequest is returned by ParseRequest for any structural
// parse failure; callers map it to a 400 response. It wraps
// api.ErrInvalidArgument so callers can test for that broader category
// with errors.Is without caring about the HTTP-specific message.
var ErrMalformedRequest = fmt.Errorf("http1: malformed request: %w", api.ErrInvalidArgument)

// maxHeaderLines bounds the header section against unbounded input
// from a misbehaving or hostile client.
const maxHeaderLines = 256

// Request is a parsed HTTP/1.1 (or 1.0) request.
type Request struct {
	Method  string
	Target  string
	Version string
	Headers map[string]string
	Body    []byte
}

// Header returns the canonical-cased header value, matching the
// storage convention ParseRequest uses (net/textproto canonical form).
func (r *Request) Header(name string) (string, bool) {
	v, ok := r.Headers[textproto.CanonicalMIMEHeaderKey(name)]
	return v, ok
}

// ParseRequest reads one HTTP/1.1 or HTTP/1.0 request from br: the
// request line, headers (duplicates overwrite prior, "last wins"), and
// a body bounded by Content-Length when present.
func ParseRequest(br *bufio.Reader) (*Request, error) {
	line, err := readCRLFLine(br)
	if err != nil {
		return nil, fmt.Errorf("%w: request line: %v", ErrMalformedRequest, err)
	}

	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: request line %q", ErrMalformedRequest, line)
	}
	method, target, version := parts[0], parts[1], parts[2]
	if version != "HTTP/1.1" && version != "HTTP/1.0" {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedRequest, version)
	}

	headers := make(map[string]string)
	for i := 0; ; i++ {
		if i >= maxHeaderLines {
			return nil, fmt.Errorf("%w: too many header lines", ErrMalformedRequest)
		}
		hline, err := readCRLFLine(br)
		if err != nil {
			return nil, fmt.Errorf("%w: headers: %v", ErrMalformedRequest, err)
		}
		if hline == "" {
			break
		}
		sep := strings.IndexByte(hline, ':')
		if sep < 0 {
			return nil, fmt.Errorf("%w: header %q missing colon", ErrMalformedRequest, hline)
		}
		name := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(hline[:sep]))
		value := strings.TrimSpace(hline[sep+1:])
		headers[name] = value
	}

	var body []byte
	if cl, ok := headers["Content-Length"]; ok {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: invalid Content-Length %q", ErrMalformedRequest, cl)
		}
		if n > 0 {
			body = make([]byte, n)
			if _, err := io.ReadFull(br, body); err != nil {
				return nil, fmt.Errorf("%w: body: %v", ErrMalformedRequest, err)
			}
		}
	}

	return &Request{Method: method, Target: target, Version: version, Headers: headers, Body: body}, nil
}

// readCRLFLine reads one line terminated by CRLF and returns it with
// the terminator stripped. A line terminated by bare LF is rejected,
// matching RFC 7230's strict line-ending requirement.
func readCRLFLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(line, "\r\n") {
		return "", fmt.Errorf("line not CRLF-terminated")
	}
	return line[:len(line)-2], nil
}
