package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fedepagnotta/lotteryd/internal/draw"
	"github.com/fedepagnotta/lotteryd/internal/logging"
	"github.com/fedepagnotta/lotteryd/internal/metrics"
	"github.com/fedepagnotta/lotteryd/internal/server"
)

// Helper implementations moved to dedicated files: config.go, logger.go,
// store_init.go, mdns.go, version.go.

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("lotteryd %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}
	if err := setupLogger(cfg); err != nil {
		fmt.Printf("logger configuration error: %v\n", err)
		os.Exit(1)
	}
	l := logging.L()
	l.Infof("action: build_info | result: success | version: %s | commit: %s | date: %s", version, commit, date)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := initStore(ctx, cfg)
	if err != nil {
		l.Errorf("action: store_init | result: fail | error: %v", err)
		return
	}

	coord := draw.NewCoordinator(cfg.agencies, st)

	srv := server.NewServer(
		server.WithListenAddr(cfg.listenAddr),
		server.WithCoordinator(coord),
		server.WithStore(st),
		server.WithStrictWinners(cfg.strictWinners),
		server.WithLogger(l),
	)

	go func() {
		if err := srv.Serve(ctx); err != nil {
			l.Errorf("action: accept_connections | result: fail | error: %v", err)
			cancel()
		}
	}()

	go func() {
		if !cfg.mdnsEnable {
			return
		}
		select {
		case <-srv.Ready():
		case <-ctx.Done():
			return
		}
		addr := srv.Addr()
		var portNum int
		if _, p, err := net.SplitHostPort(addr); err == nil {
			if pn, perr := strconv.Atoi(p); perr == nil {
				portNum = pn
			}
		}
		if portNum == 0 {
			if lastColon := strings.LastIndex(addr, ":"); lastColon >= 0 {
				if pn, perr := strconv.Atoi(addr[lastColon+1:]); perr == nil {
					portNum = pn
				}
			}
		}
		cleanupMDNS, err := startMDNS(ctx, cfg, portNum)
		if err != nil {
			l.Warningf("action: mdns_start | result: fail | error: %v", err)
			return
		}
		l.Infof("action: mdns_start | result: success | service: %s | port: %d", mdnsServiceType, portNum)
		go func() { <-ctx.Done(); cleanupMDNS() }()
	}()

	metrics.SetReadinessFunc(func() bool {
		select {
		case <-srv.Ready():
		default:
			return false
		}
		return ctx.Err() == nil
	})
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		metricsHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = metricsHTTP.Shutdown(context.Background()) }()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Infof("action: shutdown_signal | result: success | signal: %s", s.String())
	cancel()

	sdCtx, sdCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer sdCancel()
	if err := srv.Shutdown(sdCtx); err != nil {
		l.Errorf("action: server_graceful_shutdown | result: fail | error: %v", err)
		os.Exit(1)
	}
}
