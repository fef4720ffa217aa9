// Package sse streams domain events to browsers as Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/felixgeelhaar/blotter/pkg/domain/events"
)

type message struct {
	id   uint64
	kind string
	data []byte
}

// Handler fans dispatched events out to connected SSE clients.
type Handler struct {
	logger *slog.Logger
	seq    atomic.Uint64

	mu      sync.RWMutex
	clients map[chan message]struct{}
}

func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:  logger,
		clients: make(map[chan message]struct{}),
	}
}

// HandleEvent matches events.EventHandlerFunc so the handler can be
// registered as a dispatcher wildcard.
func (h *Handler) HandleEvent(_ context.Context, e events.DomainEvent) error {
	data, err := json.Marshal(events.Payload(e))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := message{id: h.seq.Add(1), kind: e.EventType(), data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			h.logger.Debug("sse client too slow, event dropped", "event_type", msg.kind)
		}
	}
	return nil
}

// Clients returns the number of connected streams.
func (h *Handler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP streams events until the client disconnects. The optional
// "types" query parameter is a comma separated allow list.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	typeFilter := make(map[string]bool)
	if types := r.URL.Query().Get("types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			typeFilter[strings.TrimSpace(t)] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := make(chan message, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			if len(typeFilter) > 0 && !typeFilter[msg.kind] {
				continue
			}
			_, _ = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", msg.id, msg.kind, msg.data)
			flusher.Flush()
		}
	}
}
