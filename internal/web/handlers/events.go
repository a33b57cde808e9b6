package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/constants"
)

// EventsHub broadcasts attendance transitions to connected SSE clients.
// It implements attendance.Notifier so it can be plugged straight into
// the session engine; a slow or disconnected client never blocks a
// transition, its events are dropped instead.
type EventsHub struct {
	mu      sync.RWMutex
	clients map[string]chan attendance.Event
}

// NewEventsHub creates an empty hub.
func NewEventsHub() *EventsHub {
	return &EventsHub{
		clients: make(map[string]chan attendance.Event),
	}
}

// Notify implements attendance.Notifier.
func (h *EventsHub) Notify(event attendance.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

// ClientCount returns the number of connected SSE clients.
func (h *EventsHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *EventsHub) subscribe() (string, chan attendance.Event) {
	id := uuid.NewString()
	ch := make(chan attendance.Event, constants.EventChannelBuffer)

	h.mu.Lock()
	h.clients[id] = ch
	h.mu.Unlock()
	return id, ch
}

func (h *EventsHub) unsubscribe(id string) {
	h.mu.Lock()
	if ch, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(ch)
	}
	h.mu.Unlock()
}

// Stream handles GET /api/v1/events and streams attendance transitions
// as server-sent events until the client disconnects.
func (h *EventsHub) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id, events := h.subscribe()
	defer h.unsubscribe(id)

	sendSSEEvent(w, flusher, "connected", map[string]string{"client": id})

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, "attendance", event)
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}
