package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/chime/internal/errors"
	"github.com/manav03panchal/chime/internal/model"
)

const testToken = "s3cret"

// =============================================================================
// Helpers
// =============================================================================

// switchHandler lets a test swap the hub behind one URL.
type switchHandler struct {
	mu sync.Mutex
	h  http.Handler
}

func (s *switchHandler) set(h http.Handler) {
	s.mu.Lock()
	s.h = h
	s.mu.Unlock()
}

func (s *switchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	h := s.h
	s.mu.Unlock()
	h.ServeHTTP(w, r)
}

func newHub(opts HubOptions) *Hub {
	if opts.Tokens == nil {
		opts.Tokens = map[string]string{testToken: "alice"}
	}
	return NewHub(opts)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type states struct {
	mu  sync.Mutex
	all []State
}

func (s *states) record(st State) {
	s.mu.Lock()
	s.all = append(s.all, st)
	s.mu.Unlock()
}

func (s *states) list() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]State(nil), s.all...)
}

func (s *states) count(st State) int {
	n := 0
	for _, v := range s.list() {
		if v == st {
			n++
		}
	}
	return n
}

func dueEvent(id string) model.DueEvent {
	return model.DueEvent{
		ReminderID: id,
		FiredAt:    time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
		Title:      "stretch",
		Sound:      model.DefaultSound,
	}
}

// runClient starts c and returns a channel of received events and a stop
// function that waits for Run to return.
func runClient(t *testing.T, c *Client) (<-chan model.DueEvent, func()) {
	events := make(chan model.DueEvent, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, func(_ context.Context, e model.DueEvent) { events <- e })
	}()
	stop := func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("client did not stop")
		}
	}
	return events, stop
}

func waitSessions(t *testing.T, h *Hub, n int) {
	require.Eventually(t, func() bool { return len(h.Sessions()) == n }, 5*time.Second, 10*time.Millisecond)
}

// =============================================================================
// Frames
// =============================================================================

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"due", `{"type":"due","event":{"reminder_id":"r1"}}`, false},
		{"due_without_event", `{"type":"due"}`, true},
		{"ack", `{"type":"ack","reminder_id":"r1"}`, false},
		{"ack_without_id", `{"type":"ack"}`, true},
		{"heartbeat", `{"type":"heartbeat"}`, false},
		{"unknown", `{"type":"nope"}`, true},
		{"garbage", `not json`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestActionFrame(t *testing.T) {
	at := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	f := Action{Kind: FrameSnooze, ReminderID: "r1", FiredAt: at, Snooze: 10 * time.Minute}.Frame()
	assert.Equal(t, "10m0s", f.Snooze)

	a, err := action(f)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, a.Snooze)
	assert.True(t, a.FiredAt.Equal(at))

	f.Snooze = "soon"
	_, err = action(f)
	assert.Error(t, err)
}

// =============================================================================
// Backoff
// =============================================================================

func TestBackoffBounded(t *testing.T) {
	b := newBackoff(100*time.Millisecond, time.Second)
	prev := time.Duration(0)
	for i := 0; i < 10; i++ {
		d := b.Next()
		assert.LessOrEqual(t, d, time.Second)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		if i < 3 {
			assert.Greater(t, d, prev)
		}
		prev = d
	}
	assert.Equal(t, time.Second, b.Next())

	b.Reset()
	assert.Less(t, b.Next(), 200*time.Millisecond)
}

// =============================================================================
// Hub
// =============================================================================

func TestHubRejectsMissingCredential(t *testing.T) {
	h := newHub(HubOptions{})
	defer h.Close()
	srv := httptest.NewServer(h)
	defer srv.Close()

	for _, auth := range []string{"", "Bearer wrong", "Basic " + testToken} {
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, auth)
	}
	assert.Empty(t, h.Sessions())
}

func TestPublishWithoutSessions(t *testing.T) {
	h := newHub(HubOptions{})
	defer h.Close()
	assert.Equal(t, 0, h.Publish(dueEvent("r1")))
}

func TestPublishReplaysOnReconnect(t *testing.T) {
	h := newHub(HubOptions{})
	defer h.Close()
	srv := httptest.NewServer(h)
	defer srv.Close()

	c, err := NewClient(ClientOptions{URL: wsURL(srv), Token: testToken})
	require.NoError(t, err)
	_, stop := runClient(t, c)
	waitSessions(t, h, 1)
	stop()
	waitSessions(t, h, 0)

	// Published during the gap.
	assert.Equal(t, 0, h.Publish(dueEvent("r1")))

	c, err = NewClient(ClientOptions{URL: wsURL(srv), Token: testToken})
	require.NoError(t, err)
	events, stop := runClient(t, c)
	defer stop()

	select {
	case e := <-events:
		assert.Equal(t, "r1", e.ReminderID)
	case <-time.After(5 * time.Second):
		t.Fatal("event published while offline was not replayed")
	}
	require.Eventually(t, func() bool { return c.Session() != "" }, 5*time.Second, 10*time.Millisecond)
}

func TestReplayExpires(t *testing.T) {
	h := newHub(HubOptions{ReplayWindow: 20 * time.Millisecond})
	defer h.Close()
	srv := httptest.NewServer(h)
	defer srv.Close()

	h.Publish(dueEvent("old"))
	time.Sleep(50 * time.Millisecond)
	h.Publish(dueEvent("fresh"))

	c, err := NewClient(ClientOptions{URL: wsURL(srv), Token: testToken})
	require.NoError(t, err)
	events, stop := runClient(t, c)
	defer stop()

	select {
	case e := <-events:
		assert.Equal(t, "fresh", e.ReminderID)
	case <-time.After(5 * time.Second):
		t.Fatal("fresh event not replayed")
	}
	select {
	case e := <-events:
		t.Fatalf("unexpected replay of %s", e.ReminderID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReplayDisabled(t *testing.T) {
	h := newHub(HubOptions{ReplayWindow: -1})
	defer h.Close()
	h.Publish(dueEvent("r1"))

	h.mu.RLock()
	defer h.mu.RUnlock()
	assert.Empty(t, h.recent)
}

func TestReplayBoundedBySendBuffer(t *testing.T) {
	h := newHub(HubOptions{SendBuffer: 4})
	defer h.Close()
	for _, id := range []string{"r1", "r2", "r3", "r4", "r5", "r6"} {
		h.Publish(dueEvent(id))
	}

	h.mu.RLock()
	require.Len(t, h.recent, 3)
	oldest, err := Decode(h.recent[0].data)
	h.mu.RUnlock()
	require.NoError(t, err)
	assert.Equal(t, "r4", oldest.Event.ReminderID)
}

func TestPublishDelivers(t *testing.T) {
	var mu sync.Mutex
	var connected, disconnected []Session
	h := newHub(HubOptions{
		OnConnect: func(s Session) {
			mu.Lock()
			connected = append(connected, s)
			mu.Unlock()
		},
		OnDisconnect: func(s Session) {
			mu.Lock()
			disconnected = append(disconnected, s)
			mu.Unlock()
		},
	})
	defer h.Close()
	srv := httptest.NewServer(h)
	defer srv.Close()

	c, err := NewClient(ClientOptions{URL: wsURL(srv), Token: testToken})
	require.NoError(t, err)
	events, stop := runClient(t, c)

	waitSessions(t, h, 1)
	assert.Equal(t, "alice", h.Sessions()[0].Identity)
	require.Eventually(t, func() bool { return c.Session() != "" }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, h.Sessions()[0].ID, c.Session())
	assert.Equal(t, StateConnected, c.State())

	assert.Equal(t, 1, h.Publish(dueEvent("r1")))
	select {
	case e := <-events:
		assert.Equal(t, "r1", e.ReminderID)
		assert.Equal(t, "stretch", e.Title)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}

	stop()
	assert.Equal(t, StateStopped, c.State())
	waitSessions(t, h, 0)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(disconnected) == 1
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, connected, 1)
	assert.Equal(t, connected[0].ID, disconnected[0].ID)
}

func TestClientActionRoundTrip(t *testing.T) {
	var mu sync.Mutex
	var got Action
	var identity string
	h := newHub(HubOptions{
		Actions: ActionFunc(func(_ context.Context, id string, a Action) (model.UpdatedMetrics, error) {
			mu.Lock()
			defer mu.Unlock()
			got, identity = a, id
			return model.UpdatedMetrics{ReminderID: a.ReminderID, Metrics: model.Metrics{DoneCount: 1, Streak: 1}}, nil
		}),
	})
	defer h.Close()
	srv := httptest.NewServer(h)
	defer srv.Close()

	results := make(chan Frame, 1)
	c, err := NewClient(ClientOptions{
		URL:      wsURL(srv),
		Token:    testToken,
		OnResult: func(f Frame) { results <- f },
	})
	require.NoError(t, err)
	_, stop := runClient(t, c)
	defer stop()
	waitSessions(t, h, 1)
	require.Eventually(t, func() bool { return c.State() == StateConnected }, 5*time.Second, 10*time.Millisecond)

	at := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, c.Send(context.Background(), Action{Kind: FrameAck, ReminderID: "r1", FiredAt: at}))

	select {
	case f := <-results:
		assert.Empty(t, f.Error)
		require.NotNil(t, f.Metrics)
		assert.Equal(t, 1, f.Metrics.Metrics.DoneCount)
	case <-time.After(5 * time.Second):
		t.Fatal("no result")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "alice", identity)
	assert.Equal(t, FrameAck, got.Kind)
	assert.True(t, got.FiredAt.Equal(at))
}

func TestClientActionError(t *testing.T) {
	h := newHub(HubOptions{
		Actions: ActionFunc(func(context.Context, string, Action) (model.UpdatedMetrics, error) {
			return model.UpdatedMetrics{}, errors.ErrReminderNotFound
		}),
	})
	defer h.Close()
	srv := httptest.NewServer(h)
	defer srv.Close()

	results := make(chan Frame, 1)
	c, err := NewClient(ClientOptions{URL: wsURL(srv), Token: testToken, OnResult: func(f Frame) { results <- f }})
	require.NoError(t, err)
	_, stop := runClient(t, c)
	defer stop()
	require.Eventually(t, func() bool { return c.State() == StateConnected }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Send(context.Background(), Action{Kind: FrameSkip, ReminderID: "r1"}))
	select {
	case f := <-results:
		assert.Equal(t, errors.ErrReminderNotFound.Error(), f.Error)
	case <-time.After(5 * time.Second):
		t.Fatal("no result")
	}
}

// =============================================================================
// Client
// =============================================================================

func TestClientRequiresCredential(t *testing.T) {
	_, err := NewClient(ClientOptions{URL: "ws://127.0.0.1:1"})
	assert.ErrorIs(t, err, errors.ErrNoCredential)
}

func TestClientSendWhileDisconnected(t *testing.T) {
	c, err := NewClient(ClientOptions{URL: "ws://127.0.0.1:1", Token: testToken})
	require.NoError(t, err)
	assert.ErrorIs(t, c.Send(context.Background(), Action{Kind: FrameAck, ReminderID: "r1"}), errors.ErrNetworkUnavailable)
}

func TestClientReconnects(t *testing.T) {
	first := newHub(HubOptions{})
	second := newHub(HubOptions{})
	defer second.Close()
	sw := &switchHandler{h: first}
	srv := httptest.NewServer(sw)
	defer srv.Close()

	st := &states{}
	c, err := NewClient(ClientOptions{
		URL:        wsURL(srv),
		Token:      testToken,
		MinBackoff: 10 * time.Millisecond,
		MaxBackoff: 50 * time.Millisecond,
		OnState:    st.record,
	})
	require.NoError(t, err)
	events, stop := runClient(t, c)
	defer stop()
	waitSessions(t, first, 1)

	sw.set(second)
	first.Close()

	waitSessions(t, second, 1)
	require.Eventually(t, func() bool { return c.State() == StateConnected }, 5*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, st.count(StateReconnecting), 1)
	assert.Equal(t, 2, st.count(StateConnected))

	second.Publish(dueEvent("r2"))
	select {
	case e := <-events:
		assert.Equal(t, "r2", e.ReminderID)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered after reconnect")
	}
}

func TestClientBadCredentialKeepsRetrying(t *testing.T) {
	h := newHub(HubOptions{})
	defer h.Close()
	srv := httptest.NewServer(h)
	defer srv.Close()

	st := &states{}
	c, err := NewClient(ClientOptions{
		URL:        wsURL(srv),
		Token:      "wrong",
		MinBackoff: 5 * time.Millisecond,
		MaxBackoff: 10 * time.Millisecond,
		OnState:    st.record,
	})
	require.NoError(t, err)
	_, stop := runClient(t, c)

	require.Eventually(t, func() bool { return c.State() == StateReconnecting }, 5*time.Second, 5*time.Millisecond)
	stop()
	assert.Zero(t, st.count(StateConnected))
	assert.Equal(t, StateStopped, c.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "reconnecting", StateReconnecting.String())
	assert.Equal(t, "stopped", StateStopped.String())
}
