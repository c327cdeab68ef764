// Package transport carries engine messages to the completion backend over a
// websocket. Every frame is a JSON envelope naming its action.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/Paranoid-AF/codelet"
)

var (
	// ErrNotConnected is returned by Send while no backend connection is up.
	ErrNotConnected = errors.New("backend not connected")
	// ErrQueueFull is returned by Send when the outbound queue is saturated.
	ErrQueueFull = errors.New("send queue full")
)

const (
	sendQueueSize  = 256
	writeTimeout   = 5 * time.Second
	reconnectDelay = 2 * time.Second
)

// Envelope is the frame every message travels in.
type Envelope struct {
	Action string          `json:"action"`
	ID     string          `json:"id"`
	Data   json.RawMessage `json:"data"`
}

// HandlerFunc receives the data of an inbound envelope.
type HandlerFunc func(data json.RawMessage)

// Client is a reconnecting websocket client. Send never blocks; frames are
// written by Run's writer goroutine.
type Client struct {
	url       atomic.Pointer[string]
	dialer    *websocket.Dialer
	queue     chan []byte
	connected atomic.Bool

	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	retry  time.Duration
	logger *slog.Logger
}

// NewClient returns a client for the backend at url. Call Run to connect.
func NewClient(url string) *Client {
	c := &Client{
		dialer:   websocket.DefaultDialer,
		queue:    make(chan []byte, sendQueueSize),
		handlers: make(map[string]HandlerFunc),
		retry:    reconnectDelay,
		logger:   slog.Default(),
	}
	c.url.Store(&url)
	return c
}

// SetURL changes the backend address used by the next connection attempt.
func (c *Client) SetURL(url string) {
	c.url.Store(&url)
}

// URL returns the backend address.
func (c *Client) URL() string {
	return *c.url.Load()
}

// Connected reports whether a backend connection is up.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Handle registers h for inbound envelopes with the given action.
func (c *Client) Handle(action string, h HandlerFunc) {
	c.mu.Lock()
	c.handlers[action] = h
	c.mu.Unlock()
}

// Send wraps msg in an envelope and queues it for writing.
func (c *Client) Send(msg codelet.Message) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}
	frame, err := Encode(msg)
	if err != nil {
		return err
	}
	select {
	case c.queue <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

// Encode wraps msg in an envelope with a fresh id.
func Encode(msg codelet.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Action(), err)
	}
	return json.Marshal(Envelope{Action: msg.Action(), ID: uuid.NewString(), Data: data})
}

// Deliver decodes an inbound frame and dispatches it by action.
func (c *Client) Deliver(frame []byte) error {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	c.mu.RLock()
	h, ok := c.handlers[env.Action]
	c.mu.RUnlock()
	if !ok {
		c.logger.Debug("unhandled backend message", "action", env.Action)
		return nil
	}
	h(env.Data)
	return nil
}

// Run connects to the backend and keeps reconnecting until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	for {
		url := c.URL()
		conn, _, err := c.dialer.DialContext(ctx, url, nil)
		if err != nil {
			c.logger.Debug("backend dial failed", "url", url, "error", err)
		} else {
			c.logger.Info("backend connected", "url", url)
			err = c.serve(ctx, conn)
			c.logger.Info("backend disconnected", "url", url, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.retry):
		}
	}
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	// Frames queued for an earlier connection are stale.
	for len(c.queue) > 0 {
		<-c.queue
	}
	c.connected.Store(true)
	defer c.connected.Store(false)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		conn.Close()
		return nil
	})
	g.Go(func() error {
		defer conn.Close()
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}
			if err := c.Deliver(frame); err != nil {
				c.logger.Warn("dropping backend message", "error", err)
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case frame := <-c.queue:
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					return fmt.Errorf("write: %w", err)
				}
			}
		}
	})
	return g.Wait()
}
