package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/memexhq/memex/embedding"
)

const (
	// DefaultDialTimeout bounds the connect plus ready handshake.
	DefaultDialTimeout = 30 * time.Second

	// DefaultRequestTimeout bounds a single embedding request.
	DefaultRequestTimeout = 60 * time.Second
)

// ClientConfig configures a worker client.
type ClientConfig struct {
	// URL is the worker websocket endpoint, e.g. "ws://127.0.0.1:8765/embed".
	URL string

	// DialTimeout bounds connection setup and the ready handshake.
	// Default: DefaultDialTimeout.
	DialTimeout time.Duration

	// RequestTimeout bounds each embedding request. Default:
	// DefaultRequestTimeout.
	RequestTimeout time.Duration

	// Progress, when set, receives progress pushes from the worker.
	Progress func(pct float64)

	Logger zerolog.Logger
}

// Client talks to a worker process and implements embedding.Embedder.
// Safe for concurrent use; in-flight requests are multiplexed over one
// connection and matched to responses by id.
type Client struct {
	conn     *websocket.Conn
	timeout  time.Duration
	progress func(float64)
	logger   zerolog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan message
	dims    int

	closed    chan struct{}
	closeOnce sync.Once
}

// Dial connects to a worker and waits for its ready handshake. A worker
// that never reports ready within the dial timeout is treated as
// unavailable.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", embedding.ErrUnavailable, cfg.URL, err)
	}

	c := &Client{
		conn:     conn,
		timeout:  cfg.RequestTimeout,
		progress: cfg.Progress,
		logger:   cfg.Logger.With().Str("component", "embedding-worker").Logger(),
		pending:  make(map[string]chan message),
		dims:     embedding.Dimension,
		closed:   make(chan struct{}),
	}

	ready := make(chan struct{})
	go c.readLoop(ready)

	select {
	case <-ready:
	case <-c.closed:
		return nil, fmt.Errorf("%w: worker connection closed before ready", embedding.ErrUnavailable)
	case <-time.After(cfg.DialTimeout):
		c.Close()
		return nil, fmt.Errorf("%w: worker ready handshake", embedding.ErrTimeout)
	case <-ctx.Done():
		c.Close()
		return nil, ctx.Err()
	}

	c.logger.Info().Str("url", cfg.URL).Int("dims", c.Dimensions()).Msg("worker ready")
	return c, nil
}

// readLoop dispatches incoming frames: ready and progress pushes are
// handled inline, everything else is routed to the pending request by id.
func (c *Client) readLoop(ready chan<- struct{}) {
	readyClosed := false
	for {
		var msg message
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.fail()
			return
		}

		switch {
		case msg.Type == typeReady:
			c.mu.Lock()
			if msg.Dims > 0 {
				c.dims = msg.Dims
			}
			c.mu.Unlock()
			if !readyClosed {
				close(ready)
				readyClosed = true
			}

		case msg.Type == typeProgress:
			if c.progress != nil {
				c.progress(msg.Progress)
			}

		case msg.ID != "":
			c.mu.Lock()
			ch, ok := c.pending[msg.ID]
			if ok {
				delete(c.pending, msg.ID)
			}
			c.mu.Unlock()
			if ok {
				ch <- msg
			}
		}
	}
}

// fail closes the connection and rejects every pending request.
func (c *Client) fail() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})

	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]chan message)
	c.mu.Unlock()

	for id, ch := range pending {
		select {
		case ch <- message{ID: id, Success: false, Error: "worker connection lost"}:
		default:
		}
	}
}

// Embed sends one embedding request and waits for its correlated response
// or the request deadline, whichever comes first.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-c.closed:
		return nil, fmt.Errorf("%w: worker connection closed", embedding.ErrUnavailable)
	default:
	}

	id := uuid.NewString()
	ch := make(chan message, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(message{ID: id, Type: typeEmbed, Text: text})
	c.writeMu.Unlock()
	if err != nil {
		c.unregister(id)
		return nil, fmt.Errorf("%w: write request: %v", embedding.ErrUnavailable, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if !resp.Success {
			if resp.Error == "worker connection lost" {
				return nil, fmt.Errorf("%w: %s", embedding.ErrUnavailable, resp.Error)
			}
			return nil, fmt.Errorf("worker embed: %s", resp.Error)
		}
		return resp.Embedding, nil

	case <-timer.C:
		c.unregister(id)
		c.logger.Warn().Str("request_id", id).Dur("timeout", c.timeout).Msg("embedding request timed out")
		return nil, embedding.ErrTimeout

	case <-ctx.Done():
		c.unregister(id)
		return nil, ctx.Err()

	case <-c.closed:
		return nil, fmt.Errorf("%w: worker connection closed", embedding.ErrUnavailable)
	}
}

func (c *Client) unregister(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Dimensions returns the vector size the worker reported at handshake.
func (c *Client) Dimensions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dims
}

// Close tears down the connection; pending requests are rejected.
func (c *Client) Close() error {
	c.fail()
	return nil
}
