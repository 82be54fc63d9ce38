package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// maxMessageSize bounds a single status message.
	maxMessageSize = 1 << 20

	// DefaultPongWait is how long a connection may stay silent.
	DefaultPongWait = 60 * time.Second
	writeWait       = 10 * time.Second
)

// WebsocketDialer dials the status stream with gorilla/websocket.
//
// Every connection is pinged every PingInterval. A connection that delivers
// neither a message nor a pong within PongWait fails its read, so a peer that
// vanished without closing the socket is treated like any other close.
type WebsocketDialer struct {
	Dialer *websocket.Dialer

	// PongWait defaults to DefaultPongWait.
	PongWait time.Duration
	// PingInterval defaults to nine tenths of PongWait.
	PingInterval time.Duration
}

// NewWebsocketDialer returns a dialer honoring proxy environment variables.
func NewWebsocketDialer() *WebsocketDialer {
	return &WebsocketDialer{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Dial performs the upgrade handshake.
func (d *WebsocketDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, res, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if res != nil {
			return nil, fmt.Errorf("stream handshake failed: %s: %w", res.Status, err)
		}
		return nil, err
	}

	pongWait := d.PongWait
	if pongWait <= 0 {
		pongWait = DefaultPongWait
	}
	pingInterval := d.PingInterval
	if pingInterval <= 0 || pingInterval >= pongWait {
		pingInterval = pongWait * 9 / 10
	}

	c := &websocketConn{conn: conn, pongWait: pongWait, done: make(chan struct{})}
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go c.pingLoop(pingInterval)
	return c, nil
}

type websocketConn struct {
	conn     *websocket.Conn
	pongWait time.Duration

	done chan struct{}
	once sync.Once
}

func (c *websocketConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, fmt.Errorf("%w: %v", io.EOF, err)
		}
		return nil, err
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	return data, nil
}

func (c *websocketConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.conn.Close()
}

// pingLoop runs until Close. WriteControl is safe alongside the reader.
func (c *websocketConn) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
