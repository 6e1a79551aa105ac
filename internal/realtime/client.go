package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering happens in the CORS middleware; the upgrade
		// endpoint is already behind token auth.
		return true
	},
}

// clientFrame is the inbound wire format: an event name plus an opaque
// payload the registered handler decodes.
type clientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client binds one gorilla/websocket connection to the Core. It implements
// Conn: Send queues into a buffered channel and the write pump drains it,
// so fan-out in the Core never blocks on a slow peer.
type Client struct {
	id     ConnectionID
	userID UserID
	core   *Core
	conn   *websocket.Conn
	send   chan Envelope

	ctx    context.Context
	cancel context.CancelFunc
	closed int32

	logger *slog.Logger
}

func NewClient(core *Core, conn *websocket.Conn, userID UserID, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:     ConnectionID(uuid.New().String()),
		userID: userID,
		core:   core,
		conn:   conn,
		send:   make(chan Envelope, 256),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

func (c *Client) ID() ConnectionID {
	return c.id
}

func (c *Client) UserID() UserID {
	return c.userID
}

// Send queues an event for delivery. It never blocks: when the buffer is
// full the peer is too slow to keep and the connection is torn down. The
// send channel is never closed from here; a closed flag plus the cancelled
// context make every later Send fail cleanly while the Core still holds a
// reference to this connection.
func (c *Client) Send(e Event) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}
	env := Envelope{
		Event:     e.EventName(),
		Data:      e,
		Timestamp: c.core.now().Unix(),
	}
	select {
	case c.send <- env:
		return nil
	case <-c.ctx.Done():
		return ErrClientDisconnected
	default:
		c.logger.Warn("send buffer full, closing client", "connID", c.id, "userID", c.userID)
		c.close()
		return ErrClientDisconnected
	}
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.close()
		c.core.OnDisconnect(c.userID, c.id)
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("error closing connection", "connID", c.id, "error", err)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "connID", c.id, "userID", c.userID, "error", err)
			} else {
				c.logger.Debug("websocket connection closed", "connID", c.id, "userID", c.userID, "error", err)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(messageBytes, &frame); err != nil || frame.Event == "" {
			// Malformed frames are dropped at the boundary; connection
			// state is untouched.
			c.logger.Debug("ignoring malformed client frame", "connID", c.id, "error", err)
			continue
		}

		if err := c.core.HandleClientEvent(c.ctx, c, c.userID, frame.Event, frame.Data); err != nil {
			c.logger.Debug("client event rejected",
				"connID", c.id, "userID", c.userID, "event", frame.Event, "error", err)
		}
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
		case env := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				c.logger.Debug("error writing message", "connID", c.id, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("error sending ping", "connID", c.id, "error", err)
				return
			}

		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// ServeWS upgrades an HTTP request to a websocket connection and attaches
// it to the Core. The caller has already authenticated the user.
func ServeWS(core *Core, w http.ResponseWriter, r *http.Request, userID UserID, logger *slog.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("failed to upgrade websocket connection", "userID", userID, "error", err)
		return
	}

	client := NewClient(core, conn, userID, logger)
	core.OnConnect(userID, client)

	go client.writePump()
	go client.readPump()
}
