// Package server exposes the interview analysis engine over WebSocket
// and REST endpoints: one ingest socket per candidate session, a
// dashboard broadcast socket, and report retrieval.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gofiber/contrib/websocket"

	"github.com/prepdeck/go-prepdeck/internal/log"
	"github.com/prepdeck/go-prepdeck/pkg/detect"
	"github.com/prepdeck/go-prepdeck/pkg/hub"
	"github.com/prepdeck/go-prepdeck/pkg/session"
	"github.com/prepdeck/go-prepdeck/pkg/transcribe"
)

var framesReceived = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "prepdeck",
	Subsystem: "server",
	Name:      "frames_received_total",
	Help:      "Video frames received across all sessions.",
})

// Config holds the server settings.
type Config struct {
	Addr         string
	ModelPath    string // YuNet model file, optional
	Tick         time.Duration
	DetectBudget time.Duration
	MaxSessions  int
	SessionTTL   time.Duration
	WhisperURL   string // fallback STT server, optional
	RecordDir    string // session JSONL recordings, optional
}

// Server is the analysis server.
type Server struct {
	cfg      Config
	app      *fiber.App
	sessions *session.Manager

	transcriber transcribe.Transcriber
	dashboard   *hub.Hub

	mu      sync.RWMutex
	reports map[string]session.Final

	cancelSweep context.CancelFunc
}

// New creates the server and registers all routes.
func New(cfg Config) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		sessions:  session.NewManager(cfg.MaxSessions, cfg.SessionTTL),
		dashboard: hub.New("dashboard"),
		reports:   make(map[string]session.Final),
	}

	if cfg.WhisperURL != "" {
		tr, err := transcribe.NewWhisperClient(cfg.WhisperURL)
		if err != nil {
			return nil, err
		}
		s.transcriber = tr
	}

	app := fiber.New(fiber.Config{
		AppName:               "PrepDeck Analysis Server",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/healthz", s.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Get("/sessions", s.handleSessions)
	api.Get("/reports/:id", s.handleReport)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/interview", websocket.New(s.handleInterview))
	app.Get("/ws/dashboard", fiberws.New(s.handleDashboard))

	s.app = app
	return s, nil
}

// Start runs the dashboard hub, the idle-session sweeper and the HTTP
// listener. Blocks until shutdown.
func (s *Server) Start() error {
	go s.dashboard.Run()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelSweep = cancel
	go s.sweepLoop(ctx)

	log.Info("server listening", "addr", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	if s.cancelSweep != nil {
		s.cancelSweep()
	}
	return s.app.Shutdown()
}

// buildEngine assembles the detector stack for one session. The
// pretrained model backend is used when configured; the heuristic
// backends always run so fusion has independent signals.
func (s *Server) buildEngine() (*detect.Engine, error) {
	cfg := detect.DefaultConfig()
	if s.cfg.DetectBudget > 0 {
		cfg.DetectBudget = s.cfg.DetectBudget
	}

	detectors := []detect.Detector{
		detect.NewSkinDetector(),
		detect.NewEdgeDetector(),
		detect.NewFlowDetector(),
		detect.NewTemplateDetector(),
	}
	if s.cfg.ModelPath != "" {
		yunet, err := detect.NewYuNet(s.cfg.ModelPath)
		if err != nil {
			log.Warn("pretrained detector unavailable, using heuristics only", "error", err)
		} else {
			detectors = append([]detect.Detector{yunet}, detectors...)
		}
	}
	return detect.NewEngine(cfg, detectors...)
}

// sweepLoop expires idle sessions, finalizing their reports so a client
// that vanished mid-interview still leaves something retrievable.
func (s *Server) sweepLoop(ctx context.Context) {
	interval := s.cfg.SessionTTL / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, sess := range s.sessions.Sweep(now) {
				final, err := sess.Stop(ctx, now)
				if err != nil {
					log.Warn("expired session finalization failed", "id", sess.ID, "error", err)
					continue
				}
				s.storeReport(final)
			}
		}
	}
}

func (s *Server) storeReport(final session.Final) {
	s.mu.Lock()
	s.reports[final.SessionID] = final
	s.mu.Unlock()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleSessions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"active":    s.sessions.Len(),
		"dashboard": s.dashboard.ClientCount(),
	})
}

func (s *Server) handleReport(c *fiber.Ctx) error {
	id := c.Params("id")
	s.mu.RLock()
	final, ok := s.reports[id]
	s.mu.RUnlock()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "report not found"})
	}
	return c.JSON(final)
}

// handleDashboard attaches a read-only observer to the broadcast hub.
func (s *Server) handleDashboard(c *fiberws.Conn) {
	client := hub.NewClient(s.dashboard, c)
	client.Run()
}
