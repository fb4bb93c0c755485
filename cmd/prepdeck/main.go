// prepdeck: interview practice analysis server.
// Accepts WebSocket connections from browser clients, analyzes video and
// audio streams, and serves scored session reports.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prepdeck/go-prepdeck/internal/config"
	"github.com/prepdeck/go-prepdeck/internal/log"
	"github.com/prepdeck/go-prepdeck/pkg/server"
)

var (
	version = "1.0.0"

	addr      = flag.String("addr", "", "HTTP listen address (overrides config)")
	modelPath = flag.String("model", "", "YuNet ONNX model path (overrides config)")
	debug     = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *modelPath != "" {
		cfg.ModelPath = *modelPath
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	log.Init(cfg.LogLevel)

	srv, err := server.New(server.Config{
		Addr:         cfg.Addr,
		ModelPath:    cfg.ModelPath,
		Tick:         cfg.TickInterval,
		DetectBudget: cfg.DetectBudget,
		MaxSessions:  cfg.MaxSessions,
		SessionTTL:   cfg.SessionTTL,
		WhisperURL:   cfg.WhisperURL,
		RecordDir:    cfg.RecordDir,
	})
	if err != nil {
		log.Error("server setup failed", "error", err)
		os.Exit(1)
	}

	go func() {
		log.Info("prepdeck starting", "version", version, "addr", cfg.Addr,
			"tick", cfg.TickInterval, "model", cfg.ModelPath)
		if err := srv.Start(); err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	done := make(chan error, 1)
	go func() { done <- srv.Shutdown() }()
	select {
	case err := <-done:
		if err != nil {
			log.Error("shutdown error", "error", err)
		}
	case <-time.After(5 * time.Second):
		log.Warn("shutdown timed out")
	}
}
