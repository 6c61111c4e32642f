package wsgate

import (
	"errors"
	"sync"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/chess-duel/pkg/chessdto"
)

// Hub tracks live connections and the rooms (join code -> connections) they
// are subscribed to.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	rooms  map[string]map[string]struct{}
	joined map[string]map[string]struct{} // conn -> rooms
	log    *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		conns:  make(map[string]*Conn),
		rooms:  make(map[string]map[string]struct{}),
		joined: make(map[string]map[string]struct{}),
		log:    logger,
	}
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
	for code := range h.joined[id] {
		if members, ok := h.rooms[code]; ok {
			delete(members, id)
			if len(members) == 0 {
				delete(h.rooms, code)
			}
		}
	}
	delete(h.joined, id)
}

// Subscribe adds connID to the room for code.
func (h *Hub) Subscribe(code, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[connID]; !ok {
		return
	}
	members, ok := h.rooms[code]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[code] = members
	}
	members[connID] = struct{}{}
	set, ok := h.joined[connID]
	if !ok {
		set = make(map[string]struct{})
		h.joined[connID] = set
	}
	set[code] = struct{}{}
}

// DropRoom forgets the room for code.
func (h *Hub) DropRoom(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.rooms[code] {
		if set, ok := h.joined[id]; ok {
			delete(set, code)
			if len(set) == 0 {
				delete(h.joined, id)
			}
		}
	}
	delete(h.rooms, code)
}

// Unicast queues one frame for connID.
func (h *Hub) Unicast(connID, event string, payload any) bool {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return h.deliver(c, chessdto.Outbound{Event: event, Data: payload})
}

// Multicast queues one frame for every connection in the room and returns how
// many accepted it.
func (h *Hub) Multicast(code, event string, payload any) int {
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.rooms[code]))
	for id := range h.rooms[code] {
		if c, ok := h.conns[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	msg := chessdto.Outbound{Event: event, Data: payload}
	n := 0
	for _, c := range targets {
		if h.deliver(c, msg) {
			n++
		}
	}
	return n
}

func (h *Hub) deliver(c *Conn, msg chessdto.Outbound) bool {
	err := c.enqueue(msg)
	if errors.Is(err, errSlowConsumer) {
		h.log.Warn("ws_slow_consumer", zap.String("conn_id", c.id), zap.String("event", msg.Event))
	}
	return err == nil
}

// Members returns the connection ids subscribed to code.
func (h *Hub) Members(code string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.rooms[code]))
	for id := range h.rooms[code] {
		out = append(out, id)
	}
	return out
}

// Connections counts live connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll fails every live connection with reason.
func (h *Hub) CloseAll(reason string) {
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.fail(websocket.StatusGoingAway, reason)
	}
}
