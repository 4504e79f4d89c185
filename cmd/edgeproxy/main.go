// File: cmd/edgeproxy/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// edgeproxy's entry point: decode a JSON configuration file, validate
// it, wire the process logger, build the orchestrator, and run until a
// shutdown signal arrives. Grounded on the teacher's
// examples/stest/server/main.go signal-handling shape (SIGINT/SIGTERM,
// a bounded shutdown timeout), simplified because proxyserver.Server
// already owns per-subsystem teardown ordering.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/momentics/edgeproxy/config"
	"github.com/momentics/edgeproxy/log"
	"github.com/momentics/edgeproxy/proxyserver"
)

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	path := "config.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "edgeproxy: %v\n", err)
		return 1
	}

	logger, err := log.New(log.Config{Level: "info"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "edgeproxy: build logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	srv, err := proxyserver.New(*cfg, logger)
	if err != nil {
		logger.Sugar().Errorf("build server: %v", err)
		return 1
	}

	srv.Start()
	logger.Sugar().Infof("edgeproxy listening on %v", srv.ListenAddrs())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	<-signalCh

	logger.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Warnf("shutdown did not complete cleanly: %v", err)
		return 1
	}
	logger.Info("shutdown complete")
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	var cfg config.Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %q: %w", path, err)
	}
	return &cfg, nil
}
