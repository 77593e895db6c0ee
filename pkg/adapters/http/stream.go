package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// allAgents is the subscription key of clients that did not filter by agent.
const allAgents = ""

// StreamManager fans lifecycle events out to SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // AgentID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(agentID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[agentID]; !ok {
		sm.subscribers[agentID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[agentID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[agentID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, agentID)
			}
		}
	}
}

// Subscribers counts the open connections for agentID.
func (sm *StreamManager) Subscribers(agentID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[agentID])
}

// Broadcast sends msg to the subscribers of agentID and to unfiltered subscribers.
func (sm *StreamManager) Broadcast(agentID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	keys := []string{allAgents}
	if agentID != allAgents {
		keys = append(keys, agentID)
	}
	for _, key := range keys {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
				// Drop message if channel is full (slow client)
				sm.logger.Warn("SSE: Client buffer full, dropping message", "agent_id", agentID)
			}
		}
	}
}

// Hooks returns lifecycle hooks that broadcast every event as JSON.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnGoalEnter:       func(_ context.Context, e *domain.GoalEvent) { sm.publish(e.AgentID, e) },
		OnGoalClose:       func(_ context.Context, e *domain.GoalEvent) { sm.publish(e.AgentID, e) },
		OnBudgetExhausted: func(_ context.Context, e *domain.GoalEvent) { sm.publish(e.AgentID, e) },
		OnTick:            func(_ context.Context, e *domain.TickEvent) { sm.publish(e.AgentID, e) },
		OnVerdict:         func(_ context.Context, e *domain.VerdictEvent) { sm.publish(e.AgentID, e) },
	}
}

func (sm *StreamManager) publish(agentID string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		sm.logger.Error("SSE: failed to encode event", "err", err)
		return
	}
	sm.Broadcast(agentID, string(data))
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	agentID := r.URL.Query().Get("agent_id")
	ch, cancel := s.Streams.Subscribe(agentID)
	defer cancel()
	s.Logger.Info("SSE: client subscribed", "agent_id", agentID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE Client Disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
