package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/BioHazard786/roomrelay/internal/dns"
	"github.com/BioHazard786/roomrelay/internal/signaling"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	connectAttempts = 3
)

// Client manages the WebSocket connection to the relay.
type Client struct {
	serverURL string
	dialer    *websocket.Dialer
	log       *slog.Logger

	conn      *websocket.Conn
	incoming  chan *signaling.Message
	outgoing  chan *signaling.Message
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a client for the relay at serverURL (ws:// or wss://).
func NewClient(serverURL string, log *slog.Logger) *Client {
	dialer := *websocket.DefaultDialer
	dialer.NetDialContext = dns.New().DialContext
	return &Client{
		serverURL: serverURL,
		dialer:    &dialer,
		log:       log,
		incoming:  make(chan *signaling.Message, 32),
		outgoing:  make(chan *signaling.Message, 32),
		done:      make(chan struct{}),
	}
}

// Connect dials the relay, retrying transient failures with exponential
// backoff, and starts the read and write pumps.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return NewError("parse server URL", err)
	}

	operation := func() error {
		conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			// The relay answered but refused the upgrade; retrying will not help.
			if resp != nil && resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
				return backoff.Permanent(fmt.Errorf("handshake rejected with %s: %w", resp.Status, err))
			}
			return err
		}
		c.conn = conn
		return nil
	}

	strategy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(250*time.Millisecond),
			backoff.WithMaxInterval(2*time.Second),
		), connectAttempts-1),
		ctx,
	)
	err = backoff.RetryNotify(operation, strategy, func(err error, d time.Duration) {
		c.log.Debug("retrying relay connection", "error", err, "next", d)
	})
	if err != nil {
		return NewError("connect to relay", err)
	}

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()
	return nil
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var msg signaling.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				c.log.Debug("relay read ended", "error", err)
			}
			return
		}
		select {
		case c.incoming <- &msg:
		case <-c.done:
			return
		}
	}
}

// writePump writes messages to the WebSocket connection and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.log.Debug("relay write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send queues a message for the relay.
func (c *Client) Send(msg *signaling.Message) error {
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}
	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return ErrNotConnected
	}
}

// Join asks the relay to put us in roomID.
func (c *Client) Join(roomID string) error {
	payload, err := json.Marshal(roomID)
	if err != nil {
		return NewError("encode join", err)
	}
	return c.Send(&signaling.Message{Type: signaling.EventJoin, Payload: payload})
}

// SendDescription relays an SDP offer or answer to the other room member.
// sdpType must be "offer" or "answer".
func (c *Client) SendDescription(roomID, sdpType, sdp string) error {
	if sdpType != signaling.EventOffer && sdpType != signaling.EventAnswer {
		return WrapError("send description", ErrUnexpectedSignal, sdpType)
	}
	msg, err := signaling.NewMessage(sdpType, signaling.SessionDescriptionPayload{
		RoomID: roomID,
		SDP:    sdp,
		Type:   sdpType,
	})
	if err != nil {
		return NewError("encode description", err)
	}
	return c.Send(msg)
}

// SendCandidate relays an ICE candidate (any JSON value) to the other member.
func (c *Client) SendCandidate(roomID string, candidate any) error {
	raw, err := json.Marshal(candidate)
	if err != nil {
		return NewError("encode candidate", err)
	}
	msg, err := signaling.NewMessage(signaling.EventICECandidate, signaling.ICECandidatePayload{
		RoomID:    roomID,
		Candidate: raw,
	})
	if err != nil {
		return NewError("encode candidate", err)
	}
	return c.Send(msg)
}

// Incoming returns the channel for receiving messages. It is closed when
// the connection ends.
func (c *Client) Incoming() <-chan *signaling.Message {
	return c.incoming
}

// Done is closed once Close has been called.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close closes the WebSocket connection and cleans up resources.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
