// File: http2/upstream.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// forward runs a completed HTTP/2 stream through the shared router,
// middleware chain, and upstream pool, translating to and from an
// HTTP/1.1 wire request/response at the upstream boundary (most
// origins behind this proxy speak HTTP/1.1; the pool itself is
// protocol-agnostic per C2).

package http2

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/edgeproxy/api"
	"github.com/momentics/edgeproxy/middleware"
	"github.com/momentics/edgeproxy/pool"
)

func (c *connState) forward(s *stream) (status int, headers map[string]string, body []byte) {
	h := c.handler
	canonicalHeaders := make(map[string]string, len(s.headers))
	for k, v := range s.headers {
		canonicalHeaders[textproto.CanonicalMIMEHeaderKey(k)] = v
	}

	match, ok := h.Router.FindRoute(s.method, s.path)
	if !ok {
		c.log.Debug("http2: no route matched", zap.String("path", s.path), zap.Error(api.ErrNotFound))
		return 404, nil, []byte("Not Found")
	}

	ctx := middleware.NewContext(s.method, s.path, canonicalHeaders, c.conn.RemoteAddr(), s.body.Bytes(), match.Route.Upstream)
	for k, v := range match.Bindings {
		ctx.Params[k] = v
	}

	chain := h.Chains[match.Route]
	var result middleware.Result
	if chain != nil {
		result = chain.Process(ctx)
	} else {
		result = middleware.Allow()
	}
	if !result.Success {
		return result.StatusCode, nil, []byte(result.ErrorMessage)
	}
	if result.CachedBody != nil {
		return 200, nil, result.CachedBody
	}

	status, body, err := c.roundTrip(ctx, s)
	if err != nil {
		c.log.Warn("http2: upstream round trip failed", zap.String("upstream", ctx.Upstream), zap.Error(err))
		return 502, nil, []byte("Bad Gateway")
	}
	if s.method == "GET" && chain != nil {
		chain.StoreResponse(ctx, body)
	}
	return status, nil, body
}

func (c *connState) roundTrip(ctx *middleware.Context, s *stream) (int, []byte, error) {
	pl, err := c.handler.Pools.Get(ctx.Upstream)
	if err != nil {
		return 0, nil, err
	}
	dialCtx, cancel := context.WithTimeout(context.Background(), dialTimeoutOr(c.handler.ConnectionTimeout))
	defer cancel()
	upstream, err := pl.Acquire(dialCtx)
	if err != nil {
		return 0, nil, err
	}
	defer upstream.Release()

	if err := writeUpstreamRequest(upstream, s, ctx); err != nil {
		return 0, nil, err
	}

	br := bufio.NewReader(upstream)
	statusCode, respHeaders, err := readStatusAndHeaders(br)
	if err != nil {
		return 0, nil, err
	}

	bufPool := pool.DefaultManager().GetPool(c.numaHint)
	respBody, err := readResponseBody(br, respHeaders, bufPool, c.numaHint)
	if err != nil {
		return 0, nil, err
	}
	return statusCode, respBody, nil
}

func dialTimeoutOr(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return 5 * time.Second
}

func writeUpstreamRequest(upstream io.Writer, s *stream, ctx *middleware.Context) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", s.method, s.path)

	wroteHost := false
	wroteLength := false
	for name, value := range ctx.Headers {
		if name == "Host" {
			wroteHost = true
		}
		if name == "Content-Length" {
			wroteLength = true
		}
		fmt.Fprintf(&b, "%s: %s\r\n", name, value)
	}
	if !wroteHost {
		host := s.authority
		if host == "" {
			host = "unknown"
		}
		fmt.Fprintf(&b, "Host: %s\r\n", host)
	}
	if !wroteLength && s.body.Len() > 0 {
		fmt.Fprintf(&b, "Content-Length: %d\r\n", s.body.Len())
	}
	b.WriteString("\r\n")
	b.Write(s.body.Bytes())

	_, err := upstream.Write(b.Bytes())
	return err
}

func readStatusAndHeaders(br *bufio.Reader) (int, map[string]string, error) {
	statusLine, err := br.ReadString('\n')
	if err != nil {
		return 0, nil, err
	}
	parts := strings.SplitN(strings.TrimRight(statusLine, "\r\n"), " ", 3)
	if len(parts) < 2 {
		return 0, nil, fmt.Errorf("http2: malformed upstream status line %q", statusLine)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, nil, fmt.Errorf("http2: malformed upstream status code %q", parts[1])
	}

	headers := make(map[string]string)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return 0, nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		sep := strings.IndexByte(line, ':')
		if sep < 0 {
			continue
		}
		headers[textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(line[:sep]))] = strings.TrimSpace(line[sep+1:])
	}
	return code, headers, nil
}

func readResponseBody(br *bufio.Reader, headers map[string]string, bufPool api.BufferPool, numaHint int) ([]byte, error) {
	if cl, ok := headers["Content-Length"]; ok {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("http2: invalid upstream Content-Length %q", cl)
		}
		body := make([]byte, n)
		if n > 0 {
			if _, err := io.ReadFull(br, body); err != nil {
				return nil, err
			}
		}
		return body, nil
	}

	chunk := bufPool.Get(32*1024, numaHint)
	defer bufPool.Put(chunk)

	var out bytes.Buffer
	for {
		n, err := br.Read(chunk.Data)
		if n > 0 {
			out.Write(chunk.Data[:n])
		}
		if err != nil {
			if err == io.EOF {
				return out.Bytes(), nil
			}
			return nil, err
		}
	}
}
