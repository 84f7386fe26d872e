// Package ws pushes run events to browser clients over WebSocket.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/coder/websocket"

	"github.com/Strob0t/interviewlab/internal/port/broadcast"
)

const writeTimeout = 5 * time.Second

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// conn wraps a single WebSocket connection. runID is empty for clients that
// follow every run.
type conn struct {
	ws     *websocket.Conn
	cancel context.CancelFunc
	runID  string
}

func (c *conn) wants(runID string) bool {
	return c.runID == "" || c.runID == runID
}

// Hub manages all active WebSocket connections and implements
// broadcast.Broadcaster.
type Hub struct {
	mu          sync.RWMutex
	conns       map[*conn]struct{}
	allowOrigin string
}

var _ broadcast.Broadcaster = (*Hub)(nil)

// NewHub creates a hub. allowOrigin is matched against the Origin header of
// upgrade requests; an empty value accepts any origin.
func NewHub(allowOrigin string) *Hub {
	return &Hub{
		conns:       make(map[*conn]struct{}),
		allowOrigin: allowOrigin,
	}
}

// HandleWS upgrades the request. A "run" query parameter restricts the
// connection to events of that run.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if h.allowOrigin == "" {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = []string{h.allowOrigin}
	}
	ws, err := websocket.Accept(w, r, opts)
	if err != nil {
		slog.Warn("ws: accept failed", "error", err)
		return
	}

	// The read loop outlives the handler, so it must not use the request context.
	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{ws: ws, cancel: cancel, runID: r.URL.Query().Get("run")}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("ws: connected", "remote", r.RemoteAddr, "run_id", c.runID)

	go func() {
		defer func() {
			h.remove(c)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// BroadcastEvent sends a typed event to every interested client. Payloads of
// type broadcast.RunEvent only reach clients following that run or all runs.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := sonic.ConfigStd.Marshal(Message{Type: eventType, Payload: payload})
	if err != nil {
		slog.ErrorContext(ctx, "ws: marshal event", "type", eventType, "error", err)
		return
	}

	runID := ""
	if ev, ok := payload.(broadcast.RunEvent); ok {
		runID = ev.RunID
	}

	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		if runID == "" || c.wants(runID) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		err := c.ws.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			slog.Debug("ws: write failed", "error", err)
			h.remove(c)
		}
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[*conn]struct{})
	h.mu.Unlock()
	for c := range conns {
		c.cancel()
		_ = c.ws.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("ws: disconnected", "run_id", c.runID)
	}
}
