// File: proxyserver/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server is the orchestrator (C11): it builds the router, middleware
// registry, upstream pools, worker pool, and acceptor in that order and
// tears them down in reverse, mirroring the teacher's NewServer/Serve/
// Shutdown shape (build pool, build listener, once-guarded shutdown
// channel) generalized from a single WebSocket listener to the
// protocol-dispatching accept path below.

package proxyserver

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/edgeproxy/acceptor"
	"github.com/momentics/edgeproxy/adapters"
	"github.com/momentics/edgeproxy/config"
	"github.com/momentics/edgeproxy/detect"
	"github.com/momentics/edgeproxy/http1"
	"github.com/momentics/edgeproxy/http2"
	"github.com/momentics/edgeproxy/middleware"
	"github.com/momentics/edgeproxy/middleware/builtin"
	"github.com/momentics/edgeproxy/routing"
	"github.com/momentics/edgeproxy/upstreampool"
	"github.com/momentics/edgeproxy/workerpool"
	"github.com/momentics/edgeproxy/wsproxy"
)

// Server owns every subsystem of one running proxy instance.
type Server struct {
	cfg     config.Config
	log     *zap.Logger
	control *adapters.ControlAdapter

	router *routing.Router
	pools  *upstreampool.Manager

	h1 *http1.Handler
	h2 *http2.Handler
	ws *wsproxy.Handler

	enabled map[detect.Protocol]bool

	workers  *workerpool.Pool
	acceptor *acceptor.Acceptor

	shutdownOnce sync.Once
}

// New builds every subsystem from cfg but does not start accepting
// connections; call Start for that. cfg must already have passed
// config.Config.Validate.
func New(cfg config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	router, err := buildRouter(cfg.Routes)
	if err != nil {
		return nil, fmt.Errorf("proxyserver: build router: %w", err)
	}

	reg := middleware.NewRegistry()
	builtin.RegisterAll(reg)
	chains, err := buildChains(reg, router, cfg.Middlewares)
	if err != nil {
		return nil, fmt.Errorf("proxyserver: build middleware chains: %w", err)
	}

	connTimeout := time.Duration(cfg.ConnectionTimeoutMS) * time.Millisecond
	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 64
	}
	pools := upstreampool.NewManager(upstreampool.Options{
		MaxConns:    maxConns,
		DialTimeout: connTimeout,
	})

	ctrl := adapters.NewControlAdapter()
	ctrl.SetConfig(map[string]any{
		"host":       cfg.Host,
		"port":       cfg.Port,
		"protocols":  cfg.Protocols,
		"route_count": len(cfg.Routes),
	})

	s := &Server{
		cfg:     cfg,
		log:     log,
		control: ctrl,
		router:  router,
		pools:   pools,
		enabled: enabledProtocols(cfg.Protocols),
		h1: &http1.Handler{
			Router: router, Chains: chains, Pools: pools,
			Log: log, ConnectionTimeout: connTimeout,
		},
		h2: &http2.Handler{
			Router: router, Chains: chains, Pools: pools,
			Log: log, ConnectionTimeout: connTimeout,
		},
		ws: &wsproxy.Handler{
			Router: router, Chains: chains, Pools: pools,
			Log: log, ConnectionTimeout: connTimeout,
		},
	}

	threadCount := cfg.ThreadCount
	if threadCount <= 0 {
		threadCount = 4
	}
	s.workers = workerpool.New(threadCount, -1, s.handleConn)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	acc, err := acceptor.New(acceptor.Config{Addr: addr, Backlog: cfg.Backlog}, s.workers)
	if err != nil {
		return nil, fmt.Errorf("proxyserver: build acceptor: %w", err)
	}
	s.acceptor = acc

	return s, nil
}

func buildRouter(routeCfgs []config.RouteConfig) (*routing.Router, error) {
	routes := make([]routing.Route, len(routeCfgs))
	for i, rc := range routeCfgs {
		pattern, err := routing.ParsePattern(rc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("route[%d] pattern %q: %w", i, rc.Pattern, err)
		}
		routes[i] = routing.Route{
			Pattern:     pattern,
			Upstream:    rc.Upstream,
			Methods:     rc.Methods,
			Middlewares: rc.Middlewares,
		}
	}
	return routing.Build(routes)
}

// buildChains builds one middleware.Chain per route, keyed by the
// route's stable pointer into router.Routes() — the same slice backing
// array FindRoute hands back in a Match, so http1/http2/wsproxy's
// map[*routing.Route]*middleware.Chain lookups hit.
func buildChains(reg *middleware.Registry, router *routing.Router, descriptors []config.MiddlewareConfig) (map[*routing.Route]*middleware.Chain, error) {
	routes := router.Routes()
	chains := make(map[*routing.Route]*middleware.Chain, len(routes))
	for i := range routes {
		chain, err := reg.BuildNamed(descriptors, routes[i].Middlewares)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", routes[i].Pattern, err)
		}
		chains[&routes[i]] = chain
	}
	return chains, nil
}

func enabledProtocols(names []string) map[detect.Protocol]bool {
	if len(names) == 0 {
		return map[detect.Protocol]bool{detect.HTTP1: true, detect.HTTP2: true, detect.WebSocket: true}
	}
	out := make(map[detect.Protocol]bool, len(names))
	for _, n := range names {
		switch strings.ToLower(n) {
		case "http1":
			out[detect.HTTP1] = true
		case "http2":
			out[detect.HTTP2] = true
		case "websocket":
			out[detect.WebSocket] = true
		}
	}
	return out
}

// Start launches the acceptor's accept loops. It returns immediately;
// connections are handled on worker-pool goroutines.
func (s *Server) Start() {
	s.acceptor.Start()
}

// Shutdown tears down the acceptor, worker pool, and upstream pools in
// that order — the reverse of New's build order — returning early with
// ctx.Err() if ctx expires before teardown completes. Shutdown is safe
// to call more than once; only the first call has effect.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		done := make(chan struct{})
		go func() {
			s.acceptor.Shutdown()
			s.workers.Shutdown()
			s.pools.CloseAll()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	return err
}

// Control exposes the server's metrics/debug surface.
func (s *Server) Control() *adapters.ControlAdapter {
	return s.control
}

// ListenAddrs returns the bound address of every acceptor listening
// socket, as strings. With SO_REUSEPORT on a fixed port every entry is
// identical; callers mainly use this to discover the actual port chosen
// when Config.Port was 0.
func (s *Server) ListenAddrs() []string {
	addrs := s.acceptor.Addrs()
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}

// handleConn classifies one accepted connection and dispatches it to
// the matching protocol handler. numaHint is threaded through from the
// acceptor's NUMA-pinned accept loop to bias buffer-pool selection.
func (s *Server) handleConn(conn net.Conn, numaHint int) {
	defer conn.Close()

	br := bufio.NewReaderSize(conn, detect.BufReaderSize)
	proto, err := detect.Classify(br)
	if err != nil {
		s.control.Metrics().Set("connections.classify_errors", 1)
		return
	}
	if !s.enabled[proto] {
		return
	}

	switch proto {
	case detect.HTTP1:
		s.h1.Serve(conn, br, numaHint)
	case detect.HTTP2:
		s.h2.Serve(conn, br, numaHint)
	case detect.WebSocket:
		s.ws.Serve(conn, br, numaHint)
	default:
		s.log.Debug("proxyserver: unclassifiable connection", zap.String("remote", remoteAddrString(conn)))
	}
}

func remoteAddrString(conn net.Conn) string {
	if conn == nil || conn.RemoteAddr() == nil {
		return ""
	}
	return conn.RemoteAddr().String()
}
