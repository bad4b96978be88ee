package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/game"
	"github.com/neuroforge/backend/internal/logging"
)

// Hub maintains the set of active clients and the match rooms they watch.
// A player holds at most one connection per match plus one player socket
// (match id ""); a new connection replaces the old one in the same slot.
type Hub struct {
	clients    map[int64]map[string]*Client // playerID -> matchID -> Client
	rooms      map[string]map[int64]*Client // matchID -> playerID -> Client
	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}
	mu         sync.RWMutex
	log        *zap.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[string]*Client),
		rooms:      make(map[string]map[int64]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		log:        logging.Named("ws"),
	}
}

// Run processes registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.stopped)
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if old, exists := h.clients[client.playerID][client.matchID]; exists && old != client {
				h.log.Info("player reconnecting, closing old connection",
					zap.Int64("player_id", client.playerID), zap.String("match_id", client.matchID))
				h.detach(old)
				old.close()
			}
			if _, exists := h.clients[client.playerID]; !exists {
				h.clients[client.playerID] = make(map[string]*Client)
			}
			h.clients[client.playerID][client.matchID] = client
			if client.matchID != "" {
				if _, exists := h.rooms[client.matchID]; !exists {
					h.rooms[client.matchID] = make(map[int64]*Client)
				}
				h.rooms[client.matchID][client.playerID] = client
			}
			h.mu.Unlock()
			h.log.Info("player connected", zap.Int64("player_id", client.playerID), zap.String("match_id", client.matchID))

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.playerID][client.matchID]; ok && cur == client {
				h.detach(client)
				client.close()
				h.log.Info("player disconnected", zap.Int64("player_id", client.playerID), zap.String("match_id", client.matchID))
			}
			h.mu.Unlock()
		}
	}
}

// detach removes c from the indexes. Callers hold h.mu.
func (h *Hub) detach(c *Client) {
	if conns, exists := h.clients[c.playerID]; exists {
		delete(conns, c.matchID)
		if len(conns) == 0 {
			delete(h.clients, c.playerID)
		}
	}
	if room, exists := h.rooms[c.matchID]; exists {
		delete(room, c.playerID)
		if len(room) == 0 {
			delete(h.rooms, c.matchID)
		}
	}
}

// Register hands c to the run loop. It returns false once the hub stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.clients {
		for _, c := range conns {
			h.detach(c)
			c.close()
		}
	}
}

// Connected reports whether playerID has a live connection.
func (h *Hub) Connected(playerID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[playerID]
	return ok
}

// BroadcastToMatch sends data to every client in the match room.
func (h *Hub) BroadcastToMatch(matchID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.rooms[matchID] {
		if !client.trySend(data) {
			h.log.Warn("send buffer full, dropping message",
				zap.Int64("player_id", client.playerID), zap.String("match_id", matchID))
		}
	}
}

// SendToPlayer sends data to every connection the player holds.
func (h *Hub) SendToPlayer(playerID int64, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := h.clients[playerID]
	if len(conns) == 0 {
		h.log.Debug("no client for player", zap.Int64("player_id", playerID))
		return
	}
	for _, client := range conns {
		if !client.trySend(data) {
			h.log.Warn("send buffer full, dropping message",
				zap.Int64("player_id", playerID), zap.String("match_id", client.matchID))
		}
	}
}

// PublishMatch delivers ev to local clients only. It lets a single
// instance run without Redis.
func (h *Hub) PublishMatch(matchID string, ev game.Event) {
	if data, ok := h.encode(ev); ok {
		h.BroadcastToMatch(matchID, data)
	}
}

func (h *Hub) PublishPlayer(playerID int64, ev game.Event) {
	if data, ok := h.encode(ev); ok {
		h.SendToPlayer(playerID, data)
	}
}

func (h *Hub) encode(ev game.Event) ([]byte, bool) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal event", zap.String("type", ev.Type), zap.Error(err))
		return nil, false
	}
	return data, true
}
