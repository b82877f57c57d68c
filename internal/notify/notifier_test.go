package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func TestWebhookNotifier_EmailAndSMS(t *testing.T) {
	var mu sync.Mutex
	var received []notificationRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req notificationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		received = append(received, req)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, time.Second, zap.NewNop())

	user := models.User{
		ID:    "u1",
		Name:  "Worker One",
		Email: strPtr("w1@example.com"),
		Phone: strPtr("+971500000001"),
	}

	n.NotifyUser(context.Background(), user, "SOS alert", "SOS pressed on device H1")

	require.Len(t, received, 2)
	assert.Equal(t, "email", received[0].Channel)
	assert.Equal(t, "w1@example.com", received[0].To)
	assert.Equal(t, "SOS alert", received[0].Subject)
	assert.Equal(t, "sms", received[1].Channel)
	assert.Equal(t, "+971500000001", received[1].To)
}

func TestWebhookNotifier_NoAddressesNoCalls(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, time.Second, zap.NewNop())
	n.NotifyUser(context.Background(), models.User{ID: "u1", Name: "No Contact"}, "s", "m")

	assert.Equal(t, 0, calls)
}

func TestWebhookNotifier_GatewayFailureSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, time.Second, zap.NewNop())

	// must not panic or surface the failure
	n.NotifyUser(context.Background(), models.User{
		ID:    "u1",
		Email: strPtr("w1@example.com"),
	}, "s", "m")
}

func TestWebhookNotifier_GatewayUnreachableSwallowed(t *testing.T) {
	n := NewWebhookNotifier("http://127.0.0.1:1", 100*time.Millisecond, zap.NewNop())

	n.NotifyUser(context.Background(), models.User{
		ID:    "u1",
		Email: strPtr("w1@example.com"),
	}, "s", "m")
}
