package delivery

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/manav03panchal/chime/internal/errors"
	"github.com/manav03panchal/chime/internal/logging"
	"github.com/manav03panchal/chime/internal/model"
)

// Client defaults.
const (
	DefaultMinBackoff  = 500 * time.Millisecond
	DefaultMaxBackoff  = 30 * time.Second
	DefaultDialTimeout = 10 * time.Second

	// A connection that stayed up this long resets the backoff.
	stableAfter = 30 * time.Second
)

// State is the connection state of a Client.
type State int

// Client states.
const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateStopped:
		return "stopped"
	}
	return "idle"
}

// ClientOptions configures a Client.
type ClientOptions struct {
	URL   string
	Token string

	MinBackoff  time.Duration
	MaxBackoff  time.Duration
	DialTimeout time.Duration
	// ReadTimeout is how long the client waits for any frame, heartbeats
	// included, before treating the connection as lost.
	ReadTimeout time.Duration

	OnState  func(State)
	OnResult func(Frame)
}

// Handler receives due events.
type Handler func(ctx context.Context, e model.DueEvent)

// Client keeps one session open to a hub, reconnecting with bounded
// exponential backoff. Connection failures are never returned to the
// caller; they show up as StateReconnecting.
type Client struct {
	opts ClientOptions
	log  *slog.Logger

	mu      sync.Mutex
	state   State
	conn    net.Conn
	session string

	wmu sync.Mutex
}

// NewClient creates a client. It fails with ErrNoCredential when no token
// is configured.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Token == "" {
		return nil, errors.ErrNoCredential
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = DefaultMinBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 3 * DefaultHeartbeat
	}
	return &Client{opts: opts, log: logging.Component("client")}, nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the session id assigned by the hub.
func (c *Client) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Run keeps the session open until ctx is cancelled, passing due events to
// handle. The connection is closed before Run returns.
func (c *Client) Run(ctx context.Context, handle Handler) error {
	b := newBackoff(c.opts.MinBackoff, c.opts.MaxBackoff)
	c.setState(StateConnecting)

	for attempt := 1; ; attempt++ {
		started := time.Now()
		err := c.serve(ctx, handle)
		if ctx.Err() != nil {
			c.setState(StateStopped)
			return nil
		}

		if time.Since(started) >= stableAfter {
			b.Reset()
			attempt = 1
		}
		wait := b.Next()
		c.setState(StateReconnecting)
		c.log.Debug("connection lost, retrying",
			logging.KeyAttempt, attempt,
			logging.KeyBackoff, wait.Milliseconds(),
			logging.KeyError, err)

		select {
		case <-ctx.Done():
			c.setState(StateStopped)
			return nil
		case <-time.After(wait):
		}
	}
}

// Send writes a user action to the hub.
func (c *Client) Send(ctx context.Context, a Action) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.ErrNetworkUnavailable
	}

	data, err := Encode(a.Frame())
	if err != nil {
		return err
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)
	return wsutil.WriteClientMessage(conn, ws.OpText, data)
}

func (c *Client) serve(ctx context.Context, handle Handler) error {
	dialer := ws.Dialer{
		Timeout: c.opts.DialTimeout,
		Header: ws.HandshakeHeaderHTTP(http.Header{
			"Authorization": []string{"Bearer " + c.opts.Token},
		}),
	}
	conn, br, _, err := dialer.Dial(ctx, c.opts.URL)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}()
	c.setState(StateConnected)

	rw := readWriter{Reader: conn, Writer: lockedWriter{w: conn, mu: &c.wmu}}
	if br != nil {
		rw.Reader = io.MultiReader(br, conn)
		defer ws.PutReader(br)
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
		data, op, err := wsutil.ReadServerData(rw)
		if err != nil {
			return err
		}
		if op != ws.OpText {
			continue
		}
		f, err := Decode(data)
		if err != nil {
			c.log.Warn("ignoring malformed frame", logging.KeyError, err)
			continue
		}
		c.dispatch(ctx, f, handle)
	}
}

func (c *Client) dispatch(ctx context.Context, f Frame, handle Handler) {
	switch f.Type {
	case FrameWelcome:
		c.mu.Lock()
		c.session = f.Session
		c.mu.Unlock()
		c.log.Info("session established", logging.KeySession, f.Session)
	case FrameDue:
		if handle != nil {
			handle(ctx, *f.Event)
		}
	case FrameResult:
		if c.opts.OnResult != nil {
			c.opts.OnResult(f)
		}
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if !changed {
		return
	}
	c.log.Debug("channel state", logging.KeyState, s.String())
	if c.opts.OnState != nil {
		c.opts.OnState(s)
	}
}

type readWriter struct {
	io.Reader
	io.Writer
}

// lockedWriter serializes control-frame replies with Send.
type lockedWriter struct {
	w  io.Writer
	mu *sync.Mutex
}

func (l lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
