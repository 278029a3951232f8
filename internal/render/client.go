package render

import (
	"log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/spf13/cast"

	"github.com/apronsim/apronsim/pkg/streaming"
)

const (
	sendChSize     = 16
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
)

// client is one renderer connection with a single write goroutine.
type client struct {
	hub    *Hub
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func newClient(h *Hub, conn *ws.Conn) *client {
	return &client{
		hub:    h,
		conn:   conn,
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
		logger: h.logger.With("remote", conn.RemoteAddr().String()),
	}
}

// send queues a frame for the write loop. Non-blocking; a slow client loses
// the frame and picks up the next tick instead.
func (c *client) send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.sendCh <- data:
		return true
	default:
		return false
	}
}

// writeLoop drains sendCh and keeps the connection alive with pings.
func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("websocket SetWriteDeadline error", "error", err)
				return
			}
			if err := c.conn.WriteMessage(c.hub.codec.messageType, data); err != nil {
				c.logger.Debug("websocket write error", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("websocket ping error", "error", err)
				return
			}
		}
	}
}

// readLoop accepts command frames from the client until the connection
// closes.
func (c *client) readLoop() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				c.logger.Debug("websocket read error", "error", err)
			}
			return
		}
		c.handleFrame(messageType, data)
	}
}

func (c *client) handleFrame(messageType int, data []byte) {
	var env streaming.Envelope
	if err := decodeFrame(messageType, data, &env); err != nil {
		c.reply(streaming.ErrorMessage{Type: streaming.TypeError, Message: "malformed frame"})
		return
	}
	if env.Type != streaming.TypeCommand || c.hub.enqueue == nil {
		c.reply(streaming.ErrorMessage{Type: streaming.TypeError, Message: "unsupported frame type: " + env.Type})
		return
	}

	line, err := cast.ToStringE(env.Payload)
	if err != nil {
		c.reply(streaming.ErrorMessage{Type: streaming.TypeError, Message: "command payload must be a string"})
		return
	}
	seq := c.hub.enqueue(Source, line)
	c.reply(streaming.AckMessage{Type: streaming.TypeAck, For: streaming.TypeCommand, Seq: seq})
}

func (c *client) reply(v any) {
	data, err := c.hub.codec.marshal(v)
	if err != nil {
		c.logger.Warn("failed to encode reply", "error", err)
		return
	}
	if !c.send(data) {
		c.logger.Debug("websocket send channel full, dropping reply")
	}
}

// close shuts down the write loop and the socket. Safe to call repeatedly.
func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		_ = c.conn.Close()
		c.hub.unregister(c)
	})
}
