package realtime

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// clients only ever send small control frames
	maxInboundSize = 4 << 10
	sendBuffer     = 64
)

type clientFrame struct {
	Action string `json:"action"`
}

// client is one member's socket in one room.
type client struct {
	hub      *Hub
	teamID   string
	memberID string
	socket   *websocket.Conn
	send     chan Message
	done     chan struct{}

	once        sync.Once
	closeCode   int
	closeReason string
}

func newClient(hub *Hub, teamID, memberID string, socket *websocket.Conn) *client {
	return &client{
		hub:      hub,
		teamID:   teamID,
		memberID: memberID,
		socket:   socket,
		send:     make(chan Message, sendBuffer),
		done:     make(chan struct{}),
	}
}

// enqueue never blocks. A full buffer means the peer stopped reading, and
// it is dropped rather than allowed to stall the room.
func (c *client) enqueue(message Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- message:
		return true
	default:
		c.hub.log.Warn("dropping slow client",
			zap.String("team_id", c.teamID),
			zap.String("member_id", c.memberID),
		)
		go c.close(websocket.CloseTryAgainLater, "too slow")
		return false
	}
}

// close leaves the room and tells the writer to say goodbye. Safe to call
// from any goroutine any number of times; the first reason wins.
func (c *client) close(code int, reason string) {
	c.once.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		c.hub.leave(c)
		close(c.done)
	})
}

func (c *client) readLoop() {
	defer c.close(websocket.CloseNormalClosure, "")

	c.socket.SetReadLimit(maxInboundSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("socket closed unexpectedly", zap.String("member_id", c.memberID), zap.Error(err))
			}
			return
		}

		var frame clientFrame
		if json.Unmarshal(payload, &frame) != nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(frame.Action), "ping") {
			c.enqueue(Message{Stream: teamStreamPrefix + c.teamID, Event: EventPong, SentAt: c.hub.now()})
		}
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.socket.Close()
	}()

	for {
		select {
		case <-c.done:
			c.flush()
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(c.closeCode, c.closeReason))
			return
		case message := <-c.send:
			if err := c.write(message); err != nil {
				c.close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close(websocket.CloseAbnormalClosure, "")
				return
			}
		}
	}
}

// flush writes whatever was queued before close, so a kicked member still
// receives the event that explains why.
func (c *client) flush() {
	for {
		select {
		case message := <-c.send:
			if c.write(message) != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *client) write(message Message) error {
	_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
	return c.socket.WriteJSON(message)
}
