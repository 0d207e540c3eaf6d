package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/chime/internal/config"
	"github.com/manav03panchal/chime/internal/errors"
	"github.com/manav03panchal/chime/internal/model"
)

func sample() model.Notification {
	return model.Notification{
		Title:       "Drink water",
		Body:        "500ml <now>",
		Tag:         "r1@2025-01-01T08:00:00Z",
		DeepLinkURL: "https://chime.example/reminders/r1",
	}
}

// =============================================================================
// Formatter Tests
// =============================================================================

func TestGetFormatter(t *testing.T) {
	tests := []struct {
		webhookType string
		expected    string
	}{
		{TypeDiscord, "*notify.DiscordFormatter"},
		{TypeSlack, "*notify.SlackFormatter"},
		{TypeGeneric, "*notify.GenericFormatter"},
		{"unknown", "*notify.GenericFormatter"},
		{"", "*notify.GenericFormatter"},
	}

	for _, tt := range tests {
		t.Run(tt.webhookType, func(t *testing.T) {
			formatter := GetFormatter(tt.webhookType)
			assert.NotNil(t, formatter)
			assert.Equal(t, tt.expected, fmt.Sprintf("%T", formatter))
			assert.Equal(t, "application/json", formatter.ContentType())
		})
	}
}

func TestGenericFormatter(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		payload, err := (&GenericFormatter{}).Format(sample())
		require.NoError(t, err)

		var got model.Notification
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, sample(), got)
	})

	t.Run("template", func(t *testing.T) {
		f := NewGenericFormatter(`{"text":"{{.Title}} -> {{.DeepLinkURL}}"}`)
		payload, err := f.Format(sample())
		require.NoError(t, err)
		assert.Equal(t, `{"text":"Drink water -> https://chime.example/reminders/r1"}`, string(payload))
	})

	t.Run("bad_template", func(t *testing.T) {
		_, err := NewGenericFormatter("{{.Title").Format(sample())
		assert.Error(t, err)
	})
}

func TestDiscordFormatter(t *testing.T) {
	payload, err := (&DiscordFormatter{}).Format(sample())
	require.NoError(t, err)
	assert.Contains(t, string(payload), "Drink water")
	assert.Contains(t, string(payload), `"url":"https://chime.example/reminders/r1"`)

	n := sample()
	n.DeepLinkURL = "chime://reminders/r1"
	payload, err = (&DiscordFormatter{}).Format(n)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), `"url"`)
}

func TestSlackFormatter(t *testing.T) {
	payload, err := (&SlackFormatter{}).Format(sample())
	require.NoError(t, err)

	var got slackPayload
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "Drink water", got.Text)
	require.Len(t, got.Blocks, 3)
	assert.Equal(t, "500ml &lt;now&gt;", got.Blocks[1].Text.Text)
	assert.Contains(t, got.Blocks[2].Text.Text, "Open in chime")
	assert.Equal(t, "#5865F2", got.Attachments[0].Color)
}

func TestSlackEscape(t *testing.T) {
	assert.Equal(t, "a &amp; b &lt;c&gt;", slackEscape("a & b <c>"))
}

// =============================================================================
// HTTP Client Tests
// =============================================================================

func TestHTTPClientSuccess(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "chime/1.0", r.Header.Get("User-Agent"))
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	res := NewHTTPClient(0).Send(context.Background(), srv.URL, "application/json", []byte(`{}`))
	require.NoError(t, res.Error)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, `{}`, string(body))
}

func TestHTTPClientRetries(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		attempts int
		wantErr  bool
	}{
		{"server_error_retried", http.StatusBadGateway, 3, true},
		{"rate_limit_retried", http.StatusTooManyRequests, 3, true},
		{"client_error_not_retried", http.StatusBadRequest, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			res := NewHTTPClient(0, 0, 0).Send(context.Background(), srv.URL, "application/json", nil)
			assert.Equal(t, tt.wantErr, res.Error != nil)
			assert.Equal(t, tt.attempts, res.Attempts)
			assert.Equal(t, int32(tt.attempts), atomic.LoadInt32(&calls))
		})
	}
}

func TestHTTPClientRecoversAfterRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res := NewHTTPClient(0, 0).Send(context.Background(), srv.URL, "application/json", nil)
	require.NoError(t, res.Error)
	assert.Equal(t, 2, res.Attempts)
}

func TestHTTPClientCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := NewHTTPClient(0, 0).Send(ctx, srv.URL, "application/json", nil)
	assert.Error(t, res.Error)
}

// =============================================================================
// Notifier Tests
// =============================================================================

func TestWebhookNotify(t *testing.T) {
	var got model.Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	wh := NewWebhook(config.WebhookConfig{Name: "test", URL: srv.URL}, NewHTTPClient(0))
	require.NoError(t, wh.Notify(context.Background(), sample()))
	assert.Equal(t, "Drink water", got.Title)
}

func TestWebhookNotifyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	wh := NewWebhook(config.WebhookConfig{Name: "test", URL: srv.URL, Type: TypeSlack}, NewHTTPClient(0))
	err := wh.Notify(context.Background(), sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook test")
}

func TestMultiNotify(t *testing.T) {
	var calls int32
	ok := NotifierFunc(func(context.Context, model.Notification) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	failing := NotifierFunc(func(context.Context, model.Notification) error {
		atomic.AddInt32(&calls, 1)
		return errors.ErrPermissionDenied
	})

	err := Multi{ok, failing, ok}.Notify(context.Background(), sample())
	assert.ErrorIs(t, err, errors.ErrPermissionDenied)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	assert.NoError(t, Multi{ok}.Notify(context.Background(), sample()))
}

func TestFromConfig(t *testing.T) {
	cfg := config.AlertConfig{}
	assert.Nil(t, FromConfig(cfg))

	cfg.SystemNotifications = true
	assert.IsType(t, &Desktop{}, FromConfig(cfg))

	cfg.Webhooks = []config.WebhookConfig{{Name: "a", URL: "http://x"}, {Name: "empty"}}
	m, ok := FromConfig(cfg).(Multi)
	require.True(t, ok)
	assert.Len(t, m, 2)
}

// =============================================================================
// Desktop Tests
// =============================================================================

func TestDesktopLinux(t *testing.T) {
	var name string
	var args []string
	d := NewDesktopWith("linux", func(_ context.Context, n string, a ...string) error {
		name, args = n, a
		return nil
	})

	require.NoError(t, d.Notify(context.Background(), sample()))
	assert.Equal(t, "notify-send", name)
	assert.Contains(t, args, "--app-name=chime")
	assert.Contains(t, args, "--hint=string:x-canonical-private-synchronous:r1@2025-01-01T08:00:00Z")
	assert.Equal(t, []string{"Drink water", "500ml <now>"}, args[len(args)-2:])
}

func TestDesktopDarwin(t *testing.T) {
	var args []string
	d := NewDesktopWith("darwin", func(_ context.Context, _ string, a ...string) error {
		args = a
		return nil
	})

	n := sample()
	n.Title = `Say "hi"`
	require.NoError(t, d.Notify(context.Background(), n))
	require.Len(t, args, 2)
	assert.Equal(t, `display notification "500ml <now>" with title "Say \"hi\""`, args[1])
}

func TestDesktopErrors(t *testing.T) {
	d := NewDesktopWith("plan9", nil)
	assert.ErrorIs(t, d.Notify(context.Background(), sample()), errors.ErrPermissionDenied)

	denied := NewDesktopWith("linux", func(context.Context, string, ...string) error {
		return fmt.Errorf("exec: %w", os.ErrPermission)
	})
	assert.ErrorIs(t, denied.Notify(context.Background(), sample()), errors.ErrPermissionDenied)

	broken := NewDesktopWith("linux", func(context.Context, string, ...string) error {
		return fmt.Errorf("exit status 1")
	})
	err := broken.Notify(context.Background(), sample())
	require.Error(t, err)
	assert.NotErrorIs(t, err, errors.ErrPermissionDenied)
}
