package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Praneeth-A/onebox/internal/models"
)

func TestClassify(t *testing.T) {
	t.Run("parses a valid response", func(t *testing.T) {
		var received classifyRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			fmt.Fprint(w, `{"category":"Interested","confidence":0.87}`)
		}))
		defer server.Close()

		classifier := NewHTTPClassifier(server.URL)
		category, confidence, err := classifier.Classify(context.Background(), "Interview Invite", "We would like to meet.")
		require.NoError(t, err)
		assert.Equal(t, models.CategoryInterested, category)
		assert.Equal(t, 0.87, confidence)

		assert.Equal(t, "Interview Invite", received.Subject)
		assert.Equal(t, "We would like to meet.", received.Body)
	})

	t.Run("truncates oversized bodies", func(t *testing.T) {
		var received classifyRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			fmt.Fprint(w, `{"category":"Spam","confidence":1}`)
		}))
		defer server.Close()

		classifier := NewHTTPClassifier(server.URL)
		_, _, err := classifier.Classify(context.Background(), "x", strings.Repeat("a", maxBodyChars+500))
		require.NoError(t, err)
		assert.Len(t, received.Body, maxBodyChars)
	})

	t.Run("fails on non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		classifier := NewHTTPClassifier(server.URL)
		_, _, err := classifier.Classify(context.Background(), "x", "y")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 503")
	})

	t.Run("fails on unknown category", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"category":"Lukewarm","confidence":0.5}`)
		}))
		defer server.Close()

		classifier := NewHTTPClassifier(server.URL)
		_, _, err := classifier.Classify(context.Background(), "x", "y")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown category")
	})

	t.Run("fails on unreachable service", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		server.Close()

		classifier := NewHTTPClassifier(server.URL)
		_, _, err := classifier.Classify(context.Background(), "x", "y")
		require.Error(t, err)
	})
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Category
		ok   bool
	}{
		{"Interested", models.CategoryInterested, true},
		{"MeetingBooked", models.CategoryMeetingBooked, true},
		{"NotInterested", models.CategoryNotInterested, true},
		{"Spam", models.CategorySpam, true},
		{"OutOfOffice", models.CategoryOutOfOffice, true},
		{"interested", "", false},
		{"", "", false},
		{"Something else", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			category, ok := parseCategory(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, category)
		})
	}
}
