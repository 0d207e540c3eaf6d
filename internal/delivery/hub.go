package delivery

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"golang.org/x/time/rate"

	"github.com/manav03panchal/chime/internal/errors"
	"github.com/manav03panchal/chime/internal/logging"
	"github.com/manav03panchal/chime/internal/model"
)

// Hub defaults.
const (
	DefaultSendBuffer   = 32
	DefaultHeartbeat    = 25 * time.Second
	DefaultReplayWindow = 60 * time.Second

	writeTimeout = 10 * time.Second
)

// ActionHandler applies a client action on behalf of an identity.
type ActionHandler interface {
	HandleAction(ctx context.Context, identity string, a Action) (model.UpdatedMetrics, error)
}

// ActionFunc adapts a function to ActionHandler.
type ActionFunc func(ctx context.Context, identity string, a Action) (model.UpdatedMetrics, error)

// HandleAction calls f.
func (f ActionFunc) HandleAction(ctx context.Context, identity string, a Action) (model.UpdatedMetrics, error) {
	return f(ctx, identity, a)
}

// Session describes one open connection.
type Session struct {
	ID          string    `json:"id"`
	Identity    string    `json:"identity"`
	Remote      string    `json:"remote"`
	ConnectedAt time.Time `json:"connected_at"`
}

// HubOptions configures a Hub.
type HubOptions struct {
	// Tokens maps accepted bearer credentials to identities.
	Tokens         map[string]string
	SendBuffer     int
	SendRatePerSec int
	Heartbeat      time.Duration
	Actions        ActionHandler

	// ReplayWindow is how long a published event is kept for sessions
	// that open later. Zero means DefaultReplayWindow, negative disables
	// replay. Receivers must drop repeats within this window.
	ReplayWindow time.Duration

	OnConnect    func(Session)
	OnDisconnect func(Session)
}

// Hub accepts authenticated WebSocket sessions and pushes due events to
// every open one. Recent events are replayed to each new session after its
// welcome frame, so a client reconnecting after a blip still sees them.
type Hub struct {
	opts   HubOptions
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	peers  map[string]*peer
	recent []published
	closed bool
}

type published struct {
	data []byte
	at   time.Time
}

type peer struct {
	session Session
	conn    net.Conn
	send    chan []byte
	limiter *rate.Limiter
	done    chan struct{}
	once    sync.Once
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		p.conn.Close()
	})
}

// NewHub creates a hub.
func NewHub(opts HubOptions) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	if opts.ReplayWindow == 0 {
		opts.ReplayWindow = DefaultReplayWindow
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		opts:   opts,
		log:    logging.Component("hub"),
		ctx:    ctx,
		cancel: cancel,
		peers:  make(map[string]*peer),
	}
}

// ServeHTTP authenticates and upgrades a client connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.authenticate(r)
	if !ok {
		w.Header().Set("WWW-Authenticate", `Bearer realm="chime"`)
		http.Error(w, errors.ErrUnauthorized.Error(), http.StatusUnauthorized)
		h.log.Warn("rejected connection", "remote", r.RemoteAddr, logging.KeyReason, "bad credential")
		return
	}

	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "hub closed", http.StatusServiceUnavailable)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		h.log.Warn("websocket upgrade failed", logging.KeyError, err)
		return
	}

	p := &peer{
		session: Session{
			ID:          logging.NewSessionID(),
			Identity:    identity,
			Remote:      r.RemoteAddr,
			ConnectedAt: time.Now(),
		},
		conn: conn,
		send: make(chan []byte, h.opts.SendBuffer),
		done: make(chan struct{}),
	}
	if h.opts.SendRatePerSec > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(h.opts.SendRatePerSec), h.opts.SendRatePerSec)
	}
	if !h.register(p) {
		conn.Close()
		return
	}

	h.wg.Add(1)
	go h.writeLoop(p)
	h.readLoop(p)
	h.unregister(p)
}

// Publish queues e for every open session and returns how many accepted it.
// The event is also kept for replay to sessions opened within the replay
// window.
func (h *Hub) Publish(e model.DueEvent) int {
	data, err := Encode(Frame{Type: FrameDue, Event: &e})
	if err != nil {
		h.log.Error("failed to encode due event", logging.KeyError, err)
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.remember(data, time.Now())
	n := 0
	for _, p := range h.peers {
		select {
		case p.send <- data:
			n++
		default:
			h.log.Warn("session send buffer full, event dropped",
				logging.KeySession, p.session.ID,
				logging.KeyReminderID, e.ReminderID)
		}
	}
	return n
}

// Sessions lists the open sessions, oldest first.
func (h *Hub) Sessions() []Session {
	h.mu.RLock()
	out := make([]Session, 0, len(h.peers))
	for _, p := range h.peers {
		out = append(out, p.session)
	}
	h.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectedAt.Before(out[j].ConnectedAt) })
	return out
}

// Close drops every session and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	peers := make([]*peer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	h.cancel()
	for _, p := range peers {
		p.close()
	}
	h.wg.Wait()
}

func (h *Hub) authenticate(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	for known, identity := range h.opts.Tokens {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			return identity, true
		}
	}
	return "", false
}

// remember appends data to the replay ring and drops entries that aged out
// or no longer fit a fresh session's send buffer. Callers hold h.mu.
func (h *Hub) remember(data []byte, now time.Time) {
	if h.opts.ReplayWindow < 0 {
		return
	}
	h.recent = append(h.recent, published{data: data, at: now})
	h.prune(now)
}

func (h *Hub) prune(now time.Time) {
	keep := h.recent[:0]
	for _, r := range h.recent {
		if now.Sub(r.at) < h.opts.ReplayWindow {
			keep = append(keep, r)
		}
	}
	// One slot stays free for the welcome frame.
	if over := len(keep) - (h.opts.SendBuffer - 1); over > 0 {
		keep = keep[:copy(keep, keep[over:])]
	}
	clear(h.recent[len(keep):])
	h.recent = keep
}

// register queues the welcome frame and any replayed events before the
// peer becomes visible to Publish, so the welcome always goes first.
func (h *Hub) register(p *peer) bool {
	welcome, err := Encode(Frame{Type: FrameWelcome, Session: p.session.ID})
	if err != nil {
		return false
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	p.send <- welcome
	h.prune(time.Now())
	replayed := 0
	for _, r := range h.recent {
		select {
		case p.send <- r.data:
			replayed++
		default:
		}
	}
	h.peers[p.session.ID] = p
	h.mu.Unlock()

	h.log.Info("session connected",
		logging.KeySession, p.session.ID,
		"identity", p.session.Identity,
		"replayed", replayed)
	if h.opts.OnConnect != nil {
		h.opts.OnConnect(p.session)
	}
	return true
}

func (h *Hub) unregister(p *peer) {
	p.close()
	h.mu.Lock()
	delete(h.peers, p.session.ID)
	h.mu.Unlock()

	h.log.Info("session disconnected", logging.KeySession, p.session.ID)
	if h.opts.OnDisconnect != nil {
		h.opts.OnDisconnect(p.session)
	}
}

func (h *Hub) writeLoop(p *peer) {
	defer h.wg.Done()
	defer p.close()

	heartbeat := time.NewTicker(h.opts.Heartbeat)
	defer heartbeat.Stop()
	beat, _ := Encode(Frame{Type: FrameHeartbeat})

	for {
		var data []byte
		select {
		case <-h.ctx.Done():
			return
		case <-p.done:
			return
		case data = <-p.send:
			if p.limiter != nil {
				if err := p.limiter.Wait(h.ctx); err != nil {
					return
				}
			}
		case <-heartbeat.C:
			data = beat
		}

		_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := wsutil.WriteServerMessage(p.conn, ws.OpText, data); err != nil {
			h.log.Debug("session write failed", logging.KeySession, p.session.ID, logging.KeyError, err)
			return
		}
	}
}

func (h *Hub) readLoop(p *peer) {
	for {
		data, op, err := wsutil.ReadClientData(p.conn)
		if err != nil {
			return
		}
		if op != ws.OpText {
			continue
		}

		f, err := Decode(data)
		if err != nil {
			h.reply(p, Frame{Type: FrameResult, Error: err.Error()})
			continue
		}
		switch f.Type {
		case FrameAck, FrameSkip, FrameSnooze:
			h.reply(p, h.handleAction(p, f))
		}
	}
}

func (h *Hub) handleAction(p *peer, f Frame) Frame {
	res := Frame{Type: FrameResult, ReminderID: f.ReminderID, FiredAt: f.FiredAt}
	if h.opts.Actions == nil {
		res.Error = "actions not supported"
		return res
	}
	a, err := action(f)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	m, err := h.opts.Actions.HandleAction(h.ctx, p.session.Identity, a)
	if err != nil {
		h.log.Warn("client action failed",
			logging.KeySession, p.session.ID,
			logging.KeyReminderID, f.ReminderID,
			logging.KeyOperation, f.Type,
			logging.KeyError, err)
		res.Error = err.Error()
		return res
	}
	res.Metrics = &m
	return res
}

func (h *Hub) reply(p *peer, f Frame) {
	data, err := Encode(f)
	if err != nil {
		return
	}
	select {
	case p.send <- data:
	case <-p.done:
	case <-h.ctx.Done():
	}
}
