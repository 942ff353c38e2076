package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jagan969646/My-Jarvis-Assistant/config"
	"github.com/jagan969646/My-Jarvis-Assistant/metrics"
	"github.com/jagan969646/My-Jarvis-Assistant/session"
)

// Controller is the session surface the feed drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	Snapshot() session.Snapshot
	Subscribe(buffer int) (<-chan session.Event, func())
	SessionID() string
}

// Server streams HUD state to websocket clients and accepts link controls.
type Server struct {
	httpServer *http.Server
	upgrader   websocket.Upgrader
	manager    Controller
	metrics    *metrics.Collector
	config     *config.Config

	metricsInterval time.Duration
}

// NewServerWebsocket builds the HUD feed server.
func NewServerWebsocket(cfg *config.Config, manager Controller, m *metrics.Collector) *Server {
	s := &Server{
		manager:         manager,
		metrics:         m,
		config:          cfg,
		metricsInterval: time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    4 * 1024,
			WriteBufferSize:   64 * 1024, // camera previews
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				for _, allowed := range cfg.AllowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.HUDPort),
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metricsHandler())
	return mux
}

func (s *Server) metricsHandler() http.Handler {
	if s.metrics == nil {
		return http.NotFoundHandler()
	}
	return s.metrics.Handler()
}

// Start begins listening for connections
func (s *Server) Start() error {
	log.Printf("🚀 HUD feed starting on port %d", s.config.HUDPort)
	log.Printf("📡 HUD endpoint: ws://localhost:%d/ws", s.config.HUDPort)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server. The session manager is shut down
// by its owner.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("🛑 Shutting down HUD feed...")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := newClient(conn, s.manager, s.metrics, s.metricsInterval)
	log.Printf("✅ HUD client connected: %s", conn.RemoteAddr())

	c.run()

	log.Printf("🔌 HUD client disconnected: %s", conn.RemoteAddr())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.manager.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","active":%t,"state":%q}`, snap.Active, snap.Status.String())
}
