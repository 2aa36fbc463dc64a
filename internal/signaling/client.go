package signaling

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/BioHazard786/roomrelay/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// DefaultMaxMessageSize is enough for SDP with a full candidate list.
	DefaultMaxMessageSize = 64 * 1024

	// DefaultSendBuffer is the outbound queue length per participant.
	DefaultSendBuffer = 256
)

// ClientOptions tunes a single websocket participant.
type ClientOptions struct {
	// SendBuffer is the outbound queue length. Messages beyond it are dropped.
	SendBuffer int
	// MaxMessageSize caps inbound frames in bytes.
	MaxMessageSize int64
	// MessagesPerSecond limits inbound frames. Zero disables the limit.
	MessagesPerSecond float64
}

// Client is a participant connected over a websocket.
type Client struct {
	id   ParticipantID
	hub  *Hub
	conn *websocket.Conn
	log  *slog.Logger

	maxMessageSize int64
	limiter        *rate.Limiter

	// send is a buffered channel for all outbound messages. Only the hub
	// goroutine writes to it and closes it; WritePump drains it.
	send      chan *Message
	closeOnce sync.Once
}

// NewClient wraps conn as participant id.
func NewClient(id ParticipantID, hub *Hub, conn *websocket.Conn, opts ClientOptions, log *slog.Logger) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultMaxMessageSize
	}
	c := &Client{
		id:             id,
		hub:            hub,
		conn:           conn,
		log:            log.With("participant", id),
		maxMessageSize: opts.MaxMessageSize,
		send:           make(chan *Message, opts.SendBuffer),
	}
	if opts.MessagesPerSecond > 0 {
		burst := int(opts.MessagesPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), burst)
	}
	return c
}

// ID implements Peer.
func (c *Client) ID() ParticipantID {
	return c.id
}

// Send implements Peer. It never blocks the hub: a full queue drops msg.
func (c *Client) Send(msg *Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		c.log.Warn("send buffer full, dropping message", "event", msg.Type)
		return false
	}
}

// Close releases the outbound queue, which makes WritePump send a close
// frame and exit. Called by the hub once the participant is unregistered.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	defer func() {
		if err := c.hub.Unregister(c); err != nil {
			c.log.Debug("unregister after hub stop", "error", err)
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read failed", "error", err)
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			metrics.Dropped.WithLabelValues(metrics.DropRateLimited).Inc()
			c.log.Debug("inbound message rate limited")
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			metrics.Dropped.WithLabelValues(metrics.DropMalformed).Inc()
			c.log.Debug("undecodable frame", "error", err)
			continue
		}

		if err := c.hub.Dispatch(c.id, &msg); err != nil {
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.log.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
