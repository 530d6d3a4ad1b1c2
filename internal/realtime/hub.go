package realtime

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teamsync/teamsync/pkg/logger"
)

// Message is one frame pushed to a team's sockets.
type Message struct {
	Stream string    `json:"stream"`
	Event  string    `json:"event"`
	Data   any       `json:"data,omitempty"`
	SentAt time.Time `json:"sent_at"`
}

// Hub keeps one room per team. A room maps each member to the sockets they
// hold, so removing a member closes exactly their sockets.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]room
	open     atomic.Int64
	closed   atomic.Bool
	upgrader websocket.Upgrader
	log      *zap.Logger
	now      func() time.Time
}

type room map[string]map[*client]struct{}

// NewHub constructs a realtime hub. Origins listed in allowedOrigins are
// accepted in addition to same-origin and loopback requests.
func NewHub(allowedOrigins ...string) *Hub {
	return &Hub{
		rooms: make(map[string]room),
		log:   logger.WithModule("realtime"),
		now:   func() time.Time { return time.Now().UTC() },
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// Join upgrades the request and keeps the socket in teamID's room until
// either side closes it. It blocks for the life of the connection.
func (h *Hub) Join(teamID, memberID string, w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "realtime hub is shutting down", http.StatusServiceUnavailable)
		return
	}
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed",
			zap.String("team_id", teamID),
			zap.String("member_id", memberID),
			zap.Error(err),
		)
		return
	}

	c := newClient(h, roomKey(teamID), memberID, socket)
	if !h.enter(c) {
		// Close ran while the handshake was in flight.
		_ = socket.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = socket.Close()
		return
	}

	go c.writeLoop()
	c.readLoop()
}

// Broadcast sends message to every socket in teamID's room and reports how
// many sockets it was queued for.
func (h *Hub) Broadcast(teamID string, message Message) int {
	key := roomKey(teamID)
	if key == "" {
		return 0
	}
	message = h.stamp(key, message)

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, sockets := range h.rooms[key] {
		for c := range sockets {
			if c.enqueue(message) {
				sent++
			}
		}
	}
	return sent
}

// Kick closes the member's sockets in teamID's room. Frames already queued
// for them are still written first. It reports how many sockets were closed.
func (h *Hub) Kick(teamID, memberID string) int {
	key := roomKey(teamID)

	h.mu.RLock()
	targets := make([]*client, 0, len(h.rooms[key][memberID]))
	for c := range h.rooms[key][memberID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.close(websocket.ClosePolicyViolation, "removed from team")
	}
	return len(targets)
}

// Close refuses new sockets and closes every open one with a going-away
// frame. It reports how many sockets were closed.
func (h *Hub) Close() int {
	h.mu.Lock()
	h.closed.Store(true)
	var targets []*client
	for _, r := range h.rooms {
		for _, sockets := range r {
			for c := range sockets {
				targets = append(targets, c)
			}
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
	return len(targets)
}

// Listeners reports how many sockets are open in teamID's room.
func (h *Hub) Listeners(teamID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, sockets := range h.rooms[roomKey(teamID)] {
		total += len(sockets)
	}
	return total
}

// Connections reports how many sockets are open across all teams.
func (h *Hub) Connections() int {
	return int(h.open.Load())
}

// enter adds c to its room. It refuses once Close has run; the flag is
// read under the same lock Close sweeps with.
func (h *Hub) enter(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed.Load() {
		return false
	}

	r := h.rooms[c.teamID]
	if r == nil {
		r = make(room)
		h.rooms[c.teamID] = r
	}
	if r[c.memberID] == nil {
		r[c.memberID] = make(map[*client]struct{})
	}
	r[c.memberID][c] = struct{}{}
	h.open.Add(1)
	return true
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.rooms[c.teamID]
	if _, ok := r[c.memberID][c]; !ok {
		return
	}
	delete(r[c.memberID], c)
	if len(r[c.memberID]) == 0 {
		delete(r, c.memberID)
	}
	if len(r) == 0 {
		delete(h.rooms, c.teamID)
	}
	h.open.Add(-1)
}

func (h *Hub) stamp(key string, message Message) Message {
	message.Stream = teamStreamPrefix + key
	if message.SentAt.IsZero() {
		message.SentAt = h.now()
	}
	return message
}

func roomKey(teamID string) string {
	return strings.ToLower(strings.TrimSpace(teamID))
}
