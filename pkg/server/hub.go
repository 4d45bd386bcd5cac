package server

import (
	"context"
	"sync"

	"github.com/matzehuels/forumgraph/pkg/display"
	"github.com/matzehuels/forumgraph/pkg/errors"
	"github.com/matzehuels/forumgraph/pkg/graph"
	"github.com/matzehuels/forumgraph/pkg/observability"
	"github.com/matzehuels/forumgraph/pkg/session"
)

// Message types pushed to subscribers.
const (
	MessageVisible = "visible"
	MessageDisplay = "display"
	MessageError   = "error"
)

// Message is one event on a view's WebSocket.
type Message struct {
	Type    string          `json:"type"`
	View    *session.View   `json:"view,omitempty"`
	Graph   *graph.Graph    `json:"graph,omitempty"`
	Display *display.Config `json:"display,omitempty"`
	Event   *display.Event  `json:"event,omitempty"`
	Error   *errorResponse  `json:"error,omitempty"`
}

func visibleMessage(v *session.View, g graph.Graph) Message {
	return Message{Type: MessageVisible, View: v, Graph: &g}
}

func displayMessage(cfg display.Config, ev display.Event) Message {
	return Message{Type: MessageDisplay, Display: &cfg, Event: &ev}
}

func errorMessage(err error) Message {
	return Message{Type: MessageError, Error: &errorResponse{
		Code:    codeOf(err),
		Message: errors.UserMessage(err),
	}}
}

// hub tracks connected clients by view.
type hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*client]struct{})}
}

func (h *hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	observability.HTTP().OnSubscribers(context.Background(), n)
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		c.close()
		observability.HTTP().OnSubscribers(context.Background(), n)
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// sendView queues m for every client watching view id.
func (h *hub) sendView(id string, m Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.viewID == id {
			c.enqueue(m)
		}
	}
}

// broadcast queues m for every client.
func (h *hub) broadcast(m Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(m)
	}
}

// viewsOf returns the distinct view ids subscribed to graph name.
func (h *hub) viewsOf(name string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]bool)
	var ids []string
	for c := range h.clients {
		if c.graph == name && !seen[c.viewID] {
			seen[c.viewID] = true
			ids = append(ids, c.viewID)
		}
	}
	return ids
}

func (h *hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.close()
	}
	observability.HTTP().OnSubscribers(context.Background(), 0)
}
