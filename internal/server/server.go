package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gaojunbin/Kronos-GPT-Quant/internal/event"
	"github.com/gaojunbin/Kronos-GPT-Quant/internal/state"
)

// Default read-side limits, matching the dashboard's expectations.
const (
	DefaultTradeHistoryLimit = 50
	DefaultStrategyLogLimit  = 100
)

const maxUpdateBodyBytes = 1 << 20

// defaultWriteWait bounds every WebSocket write so one stalled client cannot
// block broadcasts and heartbeats to the rest under s.mu.
const defaultWriteWait = 10 * time.Second

// Server exposes the trading state over HTTP and pushes live updates to
// WebSocket dashboard clients.
type Server struct {
	store     *state.Store
	upgrader  websocket.Upgrader
	writeWait time.Duration

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// New creates a dashboard server over the given store.
func New(store *state.Store) *Server {
	return &Server{
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		writeWait: defaultWriteWait,
		clients:   make(map[*websocket.Conn]bool),
	}
}

// Handler returns the HTTP routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/update-state", s.handleUpdateState)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/positions", s.handlePositions)
	mux.HandleFunc("GET /api/predictions", s.handlePredictions)
	mux.HandleFunc("GET /api/trading-history", s.handleTradingHistory)
	mux.HandleFunc("GET /api/strategy-logs", s.handleStrategyLogs)
	mux.HandleFunc("GET /api/performance", s.handlePerformance)
	mux.HandleFunc("GET /api/risk-metrics", s.handleRiskMetrics)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// ListenAndServe blocks serving the dashboard API on addr.
func (s *Server) ListenAndServe(addr string) error {
	slog.Info("Dashboard server listening", slog.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
}

// handleUpdateState ingests a typed update envelope from the strategy
// process, applies it to the store, and fans it out to WebSocket clients.
func (s *Server) handleUpdateState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}

	ev, err := event.Unmarshal(body)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, event.ErrUnknownKind) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}

	if err := s.store.UpdateState(ev); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.broadcast(body)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "state updated",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.GetSystemStatus())
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.GetPositions())
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.GetForecasts())
}

func (s *Server) handleTradingHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, DefaultTradeHistoryLimit)
	writeJSON(w, http.StatusOK, s.store.GetTradeHistory(limit))
}

func (s *Server) handleStrategyLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, DefaultStrategyLogLimit)
	writeJSON(w, http.StatusOK, s.store.GetLogs(limit))
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.GetPerformance())
}

func (s *Server) handleRiskMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.GetRiskMetrics())
}

// handleWebSocket serves the dashboard's live feed. Every client message is
// treated as a heartbeat and answered with the current system status; state
// updates are pushed as they arrive via broadcast.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", slog.Any("error", err))
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	slog.Info("WebSocket client connected", slog.String("remote", conn.RemoteAddr().String()))

	defer s.drop(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("WebSocket read ended", slog.Any("error", err))
			}
			return
		}

		status, err := json.Marshal(s.store.GetSystemStatus())
		if err != nil {
			slog.Error("Failed to marshal status for heartbeat", slog.Any("error", err))
			return
		}
		if err := s.write(conn, status); err != nil {
			return
		}
	}
}

// broadcast pushes a state-update message to every connected client,
// dropping clients whose writes fail.
func (s *Server) broadcast(envelope []byte) {
	msg, err := json.Marshal(map[string]any{
		"type":      "state_update",
		"data":      json.RawMessage(envelope),
		"timestamp": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		slog.Error("Failed to marshal broadcast", slog.Any("error", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(s.writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// write serializes outbound frames with broadcasts; gorilla connections do
// not allow concurrent writers.
func (s *Server) write(conn *websocket.Conn, msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	return conn.WriteMessage(websocket.TextMessage, msg)
}

func (s *Server) drop(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": err.Error(),
	})
}
