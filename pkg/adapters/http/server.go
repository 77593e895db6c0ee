package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes running agents over HTTP. It only reads from the Board; agents publish
// to it through the runner.
type Server struct {
	Board   *observability.Board
	Metrics *observability.Metrics
	Streams *StreamManager
	Logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves the collectors of m on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.Metrics = m
	}
}

// WithStreams shares a StreamManager, typically the one whose Hooks feed the agents.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// AgentSummary is the list view of one agent.
type AgentSummary struct {
	AgentID string            `json:"agent_id"`
	Goal    string            `json:"goal"`
	Status  domain.StatusKind `json:"status"`
	Reason  string            `json:"reason,omitempty"`
	Closed  bool              `json:"closed"`
	Tick    uint64            `json:"tick"`
}

// NewHandler creates the HTTP handler:
//
//	GET /health
//	GET /agents
//	GET /agents/{id}
//	GET /agents/{id}/graph   (mermaid)
//	GET /events[?agent_id=]  (server-sent events)
//	GET /metrics             (when WithMetrics is set)
func NewHandler(board *observability.Board, opts ...Option) http.Handler {
	s := &Server{
		Board:  board,
		Logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.Logger)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/agents", s.ListAgents)
	r.Get("/agents/{id}", s.GetAgent)
	r.Get("/agents/{id}/graph", s.GetGraph)
	r.Get("/events", s.SubscribeEvents)
	if s.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Metrics.Registry(), promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// ListAgents handles GET /agents.
func (s *Server) ListAgents(w http.ResponseWriter, r *http.Request) {
	snaps := s.Board.List()
	out := make([]AgentSummary, 0, len(snaps))
	for _, snap := range snaps {
		sum := AgentSummary{AgentID: snap.AgentID, Closed: snap.Closed, Tick: snap.Tick}
		for _, n := range snap.Nodes {
			if n.ID == snap.Root {
				sum.Goal, sum.Status, sum.Reason = n.Name, n.Status, n.Reason
			}
		}
		out = append(out, sum)
	}
	s.writeJSON(w, out)
}

// GetAgent handles GET /agents/{id}.
func (s *Server) GetAgent(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, snap)
}

// GetGraph handles GET /agents/{id}/graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(graph.GenerateMermaid(snap))); err != nil {
		s.Logger.Warn("GetGraph: write failed", "err", err)
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (domain.TreeSnapshot, bool) {
	id := chi.URLParam(r, "id")
	snap, err := s.Board.Get(id)
	if errors.Is(err, domain.ErrAgentNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return snap, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		s.Logger.Error("board lookup failed", "agent", id, "err", err)
		return snap, false
	}
	return snap, true
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("failed to encode response", "err", err)
	}
}
