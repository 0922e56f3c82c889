package server

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/3405029277/roomserver/internal/seat"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// RoomActor is the common per-room single-writer contract: open, message
// and close are handled to completion one at a time per room, but rooms
// run independently of each other.
type RoomActor interface {
	Key() string
	OnOpen(c *Client, token string, want seat.Want)
	OnMessage(c *Client, raw []byte)
	OnClose(c *Client)
}

// wsConn is the slice of *websocket.Conn the pumps actually use. Narrowing
// to an interface lets room-actor tests drive a channel-backed fake
// connection instead of a real socket.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	WriteControl(int, []byte, time.Time) error
	NextWriter(int) (io.WriteCloser, error)
	SetReadLimit(int64)
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
	SetPongHandler(func(string) error)
	Close() error
}

// Client wraps one upgraded connection. Its attachment (kind, token) is
// the bearer credential the owning actor re-resolves into a role on every
// message — the client itself never caches a role.
type Client struct {
	conn  wsConn
	actor RoomActor
	log   *zap.Logger

	token string
	kind  string

	send      chan []byte
	closeOnce sync.Once
}

func NewClient(conn wsConn, actor RoomActor, log *zap.Logger) *Client {
	return &Client{
		conn:  conn,
		actor: actor,
		log:   log,
		send:  make(chan []byte, 256),
	}
}

// Attach stamps the connection's attachment after seat allocation runs.
func (c *Client) Attach(kind, token string) {
	c.kind = kind
	c.token = token
}

func (c *Client) Token() string { return c.token }
func (c *Client) Kind() string  { return c.kind }

// Serve runs the open handshake then pumps reads on the calling goroutine;
// callers should invoke it directly from the HTTP handler goroutine.
func (c *Client) Serve(token string, want seat.Want) {
	c.actor.OnOpen(c, token, want)
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.actor.OnClose(c)
		c.close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("读取消息异常", zap.Error(err))
			}
			return
		}
		c.actor.OnMessage(c, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send marshals and enqueues msg; a full buffer means the client is stuck,
// so it is dropped rather than stalling the room.
func (c *Client) Send(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Warn("编码出站消息失败", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
		go c.close()
	}
}

// SendRaw enqueues a pre-encoded frame verbatim; the Relay actor uses this
// to rebroadcast client frames without re-marshaling them.
func (c *Client) SendRaw(data []byte) {
	select {
	case c.send <- data:
	default:
		go c.close()
	}
}

// ForceClose is duplicate-connection suppression's eviction primitive: it
// sends a close frame with the given code/reason, then tears down the
// connection. The evicted client's own readPump will still run its
// deferred OnClose against the room, serialized behind the caller's lock.
func (c *Client) ForceClose(code int, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	c.close()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}
