package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackNotifier(t *testing.T) {
	t.Run("posts a formatted chat message", func(t *testing.T) {
		var payload struct {
			Text string `json:"text"`
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		}))
		defer server.Close()

		notifier := NewSlackNotifier(server.URL)
		assert.Equal(t, "slack", notifier.Name())

		err := notifier.Notify(context.Background(), Event{
			Subject: "Interview Invite",
			From:    "hr@example.com",
			Account: "A1",
		})
		require.NoError(t, err)

		assert.Contains(t, payload.Text, "Interview Invite")
		assert.Contains(t, payload.Text, "hr@example.com")
		assert.Contains(t, payload.Text, "A1")
	})

	t.Run("fails on non-2xx status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		notifier := NewSlackNotifier(server.URL)
		err := notifier.Notify(context.Background(), Event{Subject: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
	})
}

func TestWebhookNotifier(t *testing.T) {
	t.Run("posts the raw event", func(t *testing.T) {
		var received Event
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		}))
		defer server.Close()

		notifier := NewWebhookNotifier(server.URL)
		assert.Equal(t, "webhook", notifier.Name())

		event := Event{Subject: "Offer", From: "sales@example.com", Account: "A2"}
		require.NoError(t, notifier.Notify(context.Background(), event))
		assert.Equal(t, event, received)
	})

	t.Run("fails on unreachable sink", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		server.Close()

		notifier := NewWebhookNotifier(server.URL)
		err := notifier.Notify(context.Background(), Event{Subject: "x"})
		require.Error(t, err)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		notifier := NewWebhookNotifier(server.URL)
		err := notifier.Notify(ctx, Event{Subject: "x"})
		require.Error(t, err)
	})
}
