package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	pkghttp "github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/pkg/http"
)

func TestNew(t *testing.T) {
	cfg := config.Default()
	n, err := New(cfg)
	require.NoError(t, err)
	assert.Nil(t, n)

	cfg.Notification.Enabled = true
	cfg.Notification.Channel = "email"
	n, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &EmailNotifier{}, n)

	cfg.Notification.Channel = "webhook"
	cfg.Notification.Webhook.URL = "http://127.0.0.1/hook"
	n, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &WebhookNotifier{}, n)

	cfg.Notification.Channel = "pager"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestWebhookNotifier(t *testing.T) {
	var got WebhookPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("X-Token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := pkghttp.NewClient(config.CircuitBreakerConfig{}, time.Second)
	require.NoError(t, err)
	n := NewWebhookNotifier(client, config.WebhookConfig{URL: srv.URL, Headers: map[string]string{"X-Token": "abc"}})

	err = n.Notify(context.Background(), "ops@example.com", "Convergence Alert: CURSOR_001", "review the protocol")
	require.NoError(t, err)
	assert.Equal(t, "abc", auth)
	assert.Equal(t, "Convergence Alert: CURSOR_001", got.Subject)
	assert.Equal(t, "review the protocol", got.Body)
	assert.Equal(t, "ops@example.com", got.Recipient)
}

func TestWebhookNotifier_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := pkghttp.NewClient(config.CircuitBreakerConfig{}, time.Second)
	require.NoError(t, err)
	n := NewWebhookNotifier(client, config.WebhookConfig{URL: srv.URL})
	err = n.Notify(context.Background(), "", "s", "b")
	assert.ErrorIs(t, err, models.ErrNotificationChannel)
}

func TestEmailNotifier_InvalidAddress(t *testing.T) {
	n := NewEmailNotifier(config.EmailConfig{Host: "localhost", Port: 25, From: "not an address"})
	err := n.Notify(context.Background(), "ops@example.com", "s", "b")
	assert.ErrorIs(t, err, models.ErrNotificationChannel)
}

func TestEmailNotifier_BuildMessage(t *testing.T) {
	n := NewEmailNotifier(config.EmailConfig{Host: "localhost", Port: 25, From: "coordinator@example.com"})
	msg, err := n.buildMessage("ops@example.com", "Convergence Alert: A", "body")
	require.NoError(t, err)
	assert.Equal(t, []string{"<coordinator@example.com>"}, msg.GetFromString())
	assert.Equal(t, []string{"<ops@example.com>"}, msg.GetToString())
}

func TestEmailNotifier_Unreachable(t *testing.T) {
	n := NewEmailNotifier(config.EmailConfig{Host: "127.0.0.1", Port: 1, From: "coordinator@example.com"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := n.Notify(ctx, "ops@example.com", "s", "b")
	assert.ErrorIs(t, err, models.ErrNotificationChannel)
}
