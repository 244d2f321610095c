// Package httpapi exposes a minimal read-only status surface: strategy
// listings, holding snapshots, Prometheus metrics, and a websocket stream of
// log/strategy events. It carries no business logic; all mutation happens
// through the engine subsystems.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/dufanyin/optionrunner/internal/position"
	"github.com/dufanyin/optionrunner/internal/strategy"
)

// Server is the read-only HTTP/websocket front.
type Server struct {
	logger    *zap.Logger
	manager   *strategy.Manager
	positions *position.Engine
	hub       *Hub
	srv       *http.Server
}

// New builds the router and wires the websocket hub.
func New(logger *zap.Logger, addr string, manager *strategy.Manager, positions *position.Engine, registry *prometheus.Registry) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger:    logger.Named("httpapi"),
		manager:   manager,
		positions: positions,
		hub:       NewHub(logger),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/strategies", s.handleListStrategies).Methods(http.MethodGet)
	r.HandleFunc("/api/strategies/{name}", s.handleStrategy).Methods(http.MethodGet)
	r.HandleFunc("/api/strategies/{name}/holding", s.handleHolding).Methods(http.MethodGet)
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	r.HandleFunc("/ws", s.hub.handleWS)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler(r)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Hub returns the websocket hub so the caller can attach it to the bus.
func (s *Server) Hub() *Hub { return s.hub }

// Start serves in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"strategies": s.manager.AllStrategyStatus(),
		"removed":    s.manager.RemovedStrategies(),
	})
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	st, ok := s.manager.StrategyStatus(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "strategy not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "strategy": st})
}

func (s *Server) handleHolding(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	holding, err := s.positions.SerializeHolding(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "holding": holding})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
