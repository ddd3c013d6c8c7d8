package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/yexiu0529666/gobang/internal/client"
	"github.com/yexiu0529666/gobang/internal/model"
)

// State is the channel connection state
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Event is one inbound realtime message. Data stays raw until a
// consumer decodes it against the payload type for the event name.
type Event struct {
	Name model.EventType `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Config holds channel settings
type Config struct {
	// URL is the websocket endpoint (e.g. ws://localhost:8080/ws)
	URL string

	// DialTimeout bounds one connection attempt, handshake included
	DialTimeout time.Duration

	// Reconnect backoff bounds. Reconnect is attempted only after an
	// unexpected drop, never after an explicit Disconnect.
	ReconnectMin time.Duration
	ReconnectMax time.Duration

	// MaxReconnectAttempts caps retries after a drop; 0 disables
	// reconnection entirely.
	MaxReconnectAttempts int
}

// DefaultConfig returns default channel settings
func DefaultConfig() Config {
	return Config{
		URL:                  "ws://localhost:8080/ws",
		DialTimeout:          10 * time.Second,
		ReconnectMin:         500 * time.Millisecond,
		ReconnectMax:         15 * time.Second,
		MaxReconnectAttempts: 5,
	}
}

// Channel owns the one persistent bidirectional connection to the
// match server. Moves go out through Emit; inbound events fan out to
// subscribers. While not Connected, Emit rejects immediately rather
// than queueing, so a stale move can never replay out of order later.
type Channel struct {
	cfg    Config
	creds  client.CredentialSource
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	gen     int // bumped on Connect and Disconnect; stale dials check it
	conn    *websocket.Conn
	cancel  context.CancelFunc
	subs    map[int]func(Event)
	nextSub int
}

// NewChannel creates a channel adapter. The credential source is read
// at every connection attempt, so the channel always authenticates with
// the session's current token.
func NewChannel(cfg Config, creds client.CredentialSource, logger *slog.Logger) *Channel {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultConfig().DialTimeout
	}
	if cfg.ReconnectMin == 0 {
		cfg.ReconnectMin = DefaultConfig().ReconnectMin
	}
	if cfg.ReconnectMax == 0 {
		cfg.ReconnectMax = DefaultConfig().ReconnectMax
	}
	return &Channel{
		cfg:    cfg,
		creds:  creds,
		logger: logger,
		subs:   make(map[int]func(Event)),
	}
}

// State returns the current connection state
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscription is a handle for releasing an event subscription
type Subscription struct {
	id int
	ch *Channel
}

// Subscribe registers a handler for all inbound events. Closing the
// subscription releases the handler without touching the connection;
// the channel stays up for other subscribers.
func (c *Channel) Subscribe(fn func(Event)) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = fn
	return &Subscription{id: id, ch: c}
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.ch.mu.Lock()
	defer s.ch.mu.Unlock()
	delete(s.ch.subs, s.id)
}

// Connect establishes the connection and completes the handshake. It
// is a no-op when already connected or connecting. The connection is
// authenticated with the current credential as a bearer header.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	lifetime, cancel := context.WithCancel(context.Background())

	conn, err := c.dial(ctx)

	c.mu.Lock()
	if c.gen != gen {
		// Disconnect won the race while the dial was in flight. The
		// fresh connection, if any, must not come up.
		c.mu.Unlock()
		cancel()
		if err == nil {
			_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
		}
		return nil
	}
	if err != nil {
		c.state = StateDisconnected
		c.mu.Unlock()
		cancel()
		return err
	}
	c.state = StateConnected
	c.conn = conn
	c.cancel = cancel
	c.mu.Unlock()

	go c.readLoop(lifetime, conn)
	return nil
}

// dial performs one connection attempt: websocket dial plus waiting for
// the server's connected acknowledgement.
func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	header := http.Header{}
	if token := c.creds.Credential(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.Dial(dialCtx, c.cfg.URL, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrTransport, err)
	}

	// The connection is not usable until the server acknowledges it
	_, data, err := conn.Read(dialCtx)
	if err != nil {
		_ = conn.Close(websocket.StatusProtocolError, "no handshake")
		return nil, fmt.Errorf("%w: handshake read: %w", model.ErrTransport, err)
	}

	var ack Event
	if err := json.Unmarshal(data, &ack); err != nil || ack.Name != model.EventConnected {
		_ = conn.Close(websocket.StatusProtocolError, "bad handshake")
		return nil, fmt.Errorf("%w: expected connected ack", model.ErrInvalidResponse)
	}

	return conn, nil
}

// Disconnect closes the connection and suppresses reconnection
func (c *Channel) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.cancel = nil
	c.state = StateDisconnected
	c.gen++
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
}

// Emit sends an event to the server. The connected precondition is
// checked synchronously: while Connecting or Disconnected the move is
// rejected, never queued.
func (c *Channel) Emit(ctx context.Context, name model.EventType, payload any) error {
	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return model.ErrChannelUnavailable
	}
	conn := c.conn
	c.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg, err := json.Marshal(Event{Name: name, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return fmt.Errorf("%w: %w", model.ErrTransport, err)
	}
	return nil
}

// readLoop delivers inbound events until the connection drops, then
// hands off to the reconnect loop.
func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// Explicit disconnect, nothing to recover
				return
			}
			c.logger.Warn("realtime connection dropped", slog.String("error", err.Error()))
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
				c.state = StateDisconnected
			}
			c.mu.Unlock()
			c.reconnect(ctx)
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.Warn("dropping undecodable event", slog.String("error", err.Error()))
			continue
		}

		c.dispatch(ev)
	}
}

// dispatch fans an event out to the current subscribers
func (c *Channel) dispatch(ev Event) {
	c.mu.Lock()
	handlers := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		handlers = append(handlers, fn)
	}
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// reconnect retries the connection with capped exponential backoff
// after an unexpected drop. Subscriptions survive the reconnect.
func (c *Channel) reconnect(ctx context.Context) {
	if c.cfg.MaxReconnectAttempts == 0 {
		return
	}

	backoff := c.cfg.ReconnectMin
	for attempt := 1; attempt <= c.cfg.MaxReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		c.mu.Lock()
		if c.state != StateDisconnected {
			c.mu.Unlock()
			return
		}
		c.state = StateConnecting
		gen := c.gen
		c.mu.Unlock()

		conn, err := c.dial(ctx)

		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			if err == nil {
				_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
			}
			return
		}
		if err == nil {
			c.state = StateConnected
			c.conn = conn
			c.mu.Unlock()
			c.logger.Info("realtime connection re-established",
				slog.Int("attempt", attempt))
			go c.readLoop(ctx, conn)
			return
		}
		c.state = StateDisconnected
		c.mu.Unlock()

		c.logger.Warn("reconnect attempt failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		backoff *= 2
		if backoff > c.cfg.ReconnectMax {
			backoff = c.cfg.ReconnectMax
		}
	}

	c.logger.Error("giving up on reconnection",
		slog.Int("attempts", c.cfg.MaxReconnectAttempts))
}
