package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/net/websocket"
)

// Client connects to a Hub over a WebSocket. Frames that fail to decode are
// skipped.
type Client struct {
	url    string
	origin string

	mu        sync.Mutex
	conn      *websocket.Conn
	listeners []func(Message)
	done      chan struct{}
}

func NewClient(url, origin string) *Client {
	return &Client{url: url, origin: origin}
}

func (c *Client) Connect(ctx context.Context) error {
	cfg, err := websocket.NewConfig(c.url, c.origin)
	if err != nil {
		return fmt.Errorf("websocket config: %w", err)
	}
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.readLoop(conn, done)
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		var msg Message
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			if malformed(err) {
				slog.Debug("realtime: skipping malformed frame", "error", err)
				continue
			}
			return
		}
		c.mu.Lock()
		listeners := slices.Clone(c.listeners)
		c.mu.Unlock()
		for _, fn := range listeners {
			fn(msg)
		}
	}
}

func malformed(err error) bool {
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	return errors.As(err, &syntax) || errors.As(err, &typ)
}

func (c *Client) Disconnect() error {
	c.mu.Lock()
	conn, done := c.conn, c.done
	c.conn, c.done = nil, nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	<-done
	return err
}

func (c *Client) OnEvent(fn func(Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Client) Broadcast(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	if err := websocket.JSON.Send(c.conn, msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Event.Type, err)
	}
	return nil
}
