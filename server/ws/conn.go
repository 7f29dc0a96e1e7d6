package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hisui-dev/watchparty/server/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

var errSendBufferFull = errors.New("send buffer full")

// Conn wraps one websocket connection. A single reader goroutine preserves
// per-connection event ordering; outbound frames go through a buffered
// channel drained by a single writer goroutine, and a full buffer drops the
// frame instead of blocking a broadcast.
type Conn struct {
	id      string
	sock    *websocket.Conn
	handler *Handler
	logger  logging.Logger

	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

func newConn(sock *websocket.Conn, handler *Handler, logger logging.Logger) *Conn {
	return &Conn{
		id:      uuid.NewString(),
		sock:    sock,
		handler: handler,
		logger:  logger,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

// Send queues v for delivery. Best-effort: a full buffer or a closed
// connection drops the payload.
func (c *Conn) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return nil
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn(context.Background(), "dropping frame for slow client", "conn", c.id)
		return errSendBufferFull
	}
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.sock.Close()
}

// readPump consumes inbound frames until the connection dies for any
// reason, then runs disconnect handling. Events are dispatched inline so
// frames from one client are processed in arrival order.
func (c *Conn) readPump(ctx context.Context) {
	defer func() {
		c.handler.HandleDisconnect(c.id)
		_ = c.Close()
	}()

	c.sock.SetReadLimit(maxMessageSize)
	_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug(ctx, "connection closed unexpectedly", "conn", c.id, "error", err)
			}
			return
		}
		c.handler.HandleMessage(ctx, c, raw)
	}
}

// writePump drains the send channel and keeps the connection alive with
// pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
