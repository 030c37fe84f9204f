package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/InnovationGarageLM/sphero-sprk/internal/logging"
	"github.com/InnovationGarageLM/sphero-sprk/internal/robot"
	"github.com/InnovationGarageLM/sphero-sprk/internal/session"
	"go.uber.org/zap"
)

// DefaultPort is the telemetry bridge's default listening port
const DefaultPort = 8765

// Config holds the server configuration
type Config struct {
	Host       string
	Port       int
	CaptureDir string // Directory to write JSONL captures (empty = disabled)
}

// Server publishes a robot's telemetry to websocket clients
type Server struct {
	config   *Config
	hub      *Hub
	capture  *Capture
	listener net.Listener
	http     *http.Server

	mu     sync.Mutex
	robots []string
}

// New creates a new Server instance
func New(config *Config) (*Server, error) {
	var capture *Capture
	if config.CaptureDir != "" {
		c, err := OpenCapture(config.CaptureDir)
		if err != nil {
			return nil, err
		}
		capture = c
	}

	s := &Server{
		config:  config,
		hub:     NewHub(capture),
		capture: capture,
	}
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP routes: /ws for the event feed and /status for
// a JSON summary
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.hub)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// Hub returns the event hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Listen binds the configured address. Start calls it when needed.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves until ctx is done, then shuts down
func (s *Server) Start(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	logging.Info("Starting telemetry bridge",
		zap.String("addr", s.listener.Addr().String()),
		zap.Bool("capture", s.capture != nil),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping telemetry bridge...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	err := s.http.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		logging.Warn("Shutdown timeout, forcing close")
	}
	s.hub.CloseAll()

	if s.capture != nil {
		if cerr := s.capture.Close(); cerr != nil {
			logging.Error("Error closing capture", zap.Error(cerr))
		}
	}

	logging.Sync()
	return err
}

// GetActiveConnections returns the number of connected clients
func (s *Server) GetActiveConnections() int {
	return s.hub.Count()
}

// Attach subscribes to the given sensor groups on r and publishes every
// sample and orbBasic message under name. Call UpdateStreaming afterwards to
// start the flow.
func (s *Server) Attach(name string, r *robot.Robot, groups []string) error {
	for _, g := range groups {
		if err := r.Stream(g, func(sample robot.Sample) {
			s.hub.Broadcast(SampleEvent(name, sample))
		}); err != nil {
			return fmt.Errorf("subscribe %s: %w", g, err)
		}
	}

	r.Session().SetOrbBasicHandler(func(msg session.OrbBasicMessage) {
		s.hub.Broadcast(OrbBasicEvent(name, msg))
	})

	s.mu.Lock()
	s.robots = append(s.robots, name)
	s.mu.Unlock()

	logging.Info("Robot attached to telemetry bridge",
		zap.String("robot", name),
		zap.Strings("groups", groups),
	)
	return nil
}

// PublishStats broadcasts a counter snapshot every interval until ctx is done
func (s *Server) PublishStats(ctx context.Context, name string, sess *session.Session, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.hub.Broadcast(StatsEvent(name, sess.Stats()))
		}
	}
}

type status struct {
	Clients int      `json:"clients"`
	Dropped uint64   `json:"dropped"`
	Robots  []string `json:"robots"`
	Capture string   `json:"capture,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	st := status{
		Clients: s.hub.Count(),
		Dropped: s.hub.Dropped(),
		Robots:  append([]string{}, s.robots...),
	}
	s.mu.Unlock()
	if s.capture != nil {
		st.Capture = s.capture.Path()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		logging.Error("Failed to write status", zap.Error(err))
	}
}
