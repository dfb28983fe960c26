package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"golang.org/x/net/websocket"
)

// Hub is the server side of the event feed. Every connected peer receives
// the messages of the tournament it subscribed to with ?tournament=, or all
// messages when it gave none. Frames sent by peers are handed to the OnEvent
// listeners.
type Hub struct {
	mu        sync.Mutex
	peers     map[*peer]struct{}
	listeners []func(Message)
	closed    bool
}

type peer struct {
	conn         *websocket.Conn
	tournamentID string
	mu           sync.Mutex
}

func (p *peer) send(msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return websocket.JSON.Send(p.conn, msg)
}

func NewHub() *Hub {
	return &Hub{peers: make(map[*peer]struct{})}
}

// Handler upgrades requests to WebSocket connections served by the hub.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

func (h *Hub) serve(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	p := &peer{conn: conn}
	if req := conn.Request(); req != nil {
		p.tournamentID = req.URL.Query().Get("tournament")
	}
	if !h.add(p) {
		return
	}
	defer h.remove(p)

	for {
		var msg Message
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			if malformed(err) {
				continue
			}
			return
		}
		for _, fn := range h.snapshotListeners() {
			fn(msg)
		}
	}
}

func (h *Hub) add(p *peer) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.peers[p] = struct{}{}
	return true
}

func (h *Hub) remove(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.peers, p)
}

func (h *Hub) snapshotListeners() []func(Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.listeners)
}

// Peers reports the number of connected peers.
func (h *Hub) Peers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *Hub) Connect(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = false
	return nil
}

// Disconnect closes every peer and refuses new ones until Connect.
func (h *Hub) Disconnect() error {
	h.mu.Lock()
	peers := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.peers = make(map[*peer]struct{})
	h.closed = true
	h.mu.Unlock()

	var errs []error
	for _, p := range peers {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

func (h *Hub) OnEvent(fn func(Message)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Broadcast sends msg to every interested peer. Peers that fail are dropped.
func (h *Hub) Broadcast(_ context.Context, msg Message) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrNotConnected
	}
	var targets []*peer
	for p := range h.peers {
		if p.tournamentID == "" || p.tournamentID == msg.TournamentID {
			targets = append(targets, p)
		}
	}
	h.mu.Unlock()

	var errs []error
	for _, p := range targets {
		if err := p.send(msg); err != nil {
			slog.Warn("realtime: dropping peer", "tournament", msg.TournamentID, "error", err)
			h.remove(p)
			_ = p.conn.Close()
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
