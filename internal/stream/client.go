// Package stream keeps a live status feed over a WebSocket, reconnecting
// after a fixed delay whenever the connection goes away.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"dashwatch/internal/api"
	"dashwatch/internal/model"
)

// DefaultReconnectDelay is the constant delay between a close and the next
// connection attempt.
const DefaultReconnectDelay = 5 * time.Second

// State is the lifecycle state of the underlying connection.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Handler receives each decoded snapshot.
type Handler func(model.StatusSnapshot)

// FailureHandler is called for every dropped message and every failed or
// lost connection, on the same goroutine as Handler. It is not called on
// shutdown.
type FailureHandler func(err error)

// Conn is one established stream connection.
type Conn interface {
	// ReadMessage blocks for the next message. A clean close by the peer
	// is reported as an error wrapping io.EOF.
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens stream connections.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// Observer is notified of every lifecycle transition and message outcome.
type Observer interface {
	StateChanged(State)
	MessageReceived()
	MessageDropped(reason string)
	ReconnectScheduled(delay time.Duration)
}

// Config is the immutable client configuration.
type Config struct {
	URL            string
	ReconnectDelay time.Duration
	Variant        api.Variant
	Header         http.Header
	OnFailure      FailureHandler

	Logger   *slog.Logger
	Clock    clock.Clock
	Observer Observer
}

// Client is a self-healing subscription to the status stream.
type Client struct {
	cfg      Config
	dialer   Dialer
	logger   *slog.Logger
	clock    clock.Clock
	observer Observer

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New validates cfg and returns an idle client.
func New(cfg Config, dialer Dialer) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("stream: url required")
	}
	if dialer == nil {
		return nil, errors.New("stream: dialer required")
	}
	if cfg.ReconnectDelay < 0 {
		return nil, errors.New("stream: reconnect delay must be >= 0")
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Variant == "" {
		cfg.Variant = api.VariantNested
	}

	c := &Client{
		cfg:      cfg,
		dialer:   dialer,
		logger:   cfg.Logger,
		clock:    cfg.Clock,
		observer: cfg.Observer,
		state:    StateClosed,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.clock == nil {
		c.clock = clock.RealClock{}
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.cfg.OnFailure == nil {
		c.cfg.OnFailure = func(error) {}
	}
	c.logger = c.logger.With(slog.String("url", cfg.URL))
	return c, nil
}

// Start begins connecting in the background. It must be called at most once
// per client; use Close to stop.
func (c *Client) Start(onSnapshot Handler) {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.Run(ctx, onSnapshot)
	}()
}

// Close stops the client: the live connection is closed, any pending
// reconnect is abandoned and no handler call happens after Close returns.
func (c *Client) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run connects and reconnects until ctx is done. Every close schedules
// exactly one reconnect after the configured delay.
func (c *Client) Run(ctx context.Context, onSnapshot Handler) error {
	for {
		c.connect(ctx, onSnapshot)
		if err := ctx.Err(); err != nil {
			return err
		}

		c.logger.Info("stream reconnect scheduled", slog.Duration("delay", c.cfg.ReconnectDelay))
		c.observer.ReconnectScheduled(c.cfg.ReconnectDelay)
		timer := c.clock.NewTimer(c.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C():
		}
	}
}

// connect runs one connection from dial to close. It always leaves the
// client in StateClosed.
func (c *Client) connect(ctx context.Context, onSnapshot Handler) {
	c.setState(StateConnecting)

	conn, err := c.dialer.Dial(ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		c.setState(StateClosed)
		if ctx.Err() == nil {
			c.logger.Warn("stream error", slog.String("event", "dial"), slog.Any("error", err))
			c.cfg.OnFailure(err)
		}
		return
	}
	c.setState(StateOpen)
	c.logger.Info("stream open")

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				c.logger.Debug("stream closed on shutdown")
			case errors.Is(err, io.EOF):
				c.logger.Info("stream closed by server", slog.Any("error", err))
			default:
				c.logger.Warn("stream error", slog.String("event", "read"), slog.Any("error", err))
			}
			// Error and close share one path: force the close, then report it.
			_ = conn.Close()
			c.setState(StateClosed)
			if ctx.Err() == nil {
				c.cfg.OnFailure(err)
			}
			return
		}
		if ctx.Err() != nil {
			continue
		}
		c.dispatch(data, onSnapshot)
	}
}

func (c *Client) dispatch(data []byte, onSnapshot Handler) {
	snap, err := api.Decode(c.cfg.Variant, data)
	switch {
	case errors.Is(err, api.ErrNotReady):
		c.logger.Debug("stream message dropped", slog.String("reason", "not_ready"))
		c.observer.MessageDropped("not_ready")
		c.cfg.OnFailure(err)
		return
	case err != nil:
		c.logger.Error("stream message dropped", slog.String("reason", "decode"), slog.Int("bytes", len(data)), slog.Any("error", err))
		c.observer.MessageDropped("decode")
		c.cfg.OnFailure(err)
		return
	}
	c.observer.MessageReceived()
	onSnapshot(snap)
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()

	if prev != s {
		c.logger.Debug("stream state", slog.String("from", prev.String()), slog.String("to", s.String()))
	}
	c.observer.StateChanged(s)
}

type nopObserver struct{}

func (nopObserver) StateChanged(State)               {}
func (nopObserver) MessageReceived()                 {}
func (nopObserver) MessageDropped(string)            {}
func (nopObserver) ReconnectScheduled(time.Duration) {}
