package ingest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(buffer *telemetry.Buffer) *httptest.Server {
	router := NewRouter(zap.NewNop())
	NewHTTPHandler(buffer, zap.NewNop()).RegisterRoutes(router)
	return httptest.NewServer(router)
}

func TestIngest_QueuesReading(t *testing.T) {
	buffer := telemetry.NewBuffer()
	server := newTestServer(buffer)
	defer server.Close()

	resp, err := http.Post(server.URL+"/ingest", "application/json",
		strings.NewReader(`{"deviceId": "H1", "temp": 38.5}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["queued"])
	assert.Equal(t, "H1", body["deviceId"])

	entries := buffer.SnapshotAndClear()
	require.Contains(t, entries, "H1")
	assert.Equal(t, "http", entries["H1"].Source)
	assert.Equal(t, 38.5, *entries["H1"].Reading.Temperature)
}

func TestIngest_DeviceIDFromQuery(t *testing.T) {
	buffer := telemetry.NewBuffer()
	server := newTestServer(buffer)
	defer server.Close()

	resp, err := http.Post(server.URL+"/ingest?deviceId=H7", "application/json",
		strings.NewReader(`{"hr": 70}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Contains(t, buffer.SnapshotAndClear(), "H7")
}

func TestIngest_MissingDeviceID(t *testing.T) {
	buffer := telemetry.NewBuffer()
	server := newTestServer(buffer)
	defer server.Close()

	resp, err := http.Post(server.URL+"/ingest", "application/json",
		strings.NewReader(`{"temp": 38.5}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, buffer.Len())
}

func TestIngest_InvalidBody(t *testing.T) {
	server := newTestServer(telemetry.NewBuffer())
	defer server.Close()

	resp, err := http.Post(server.URL+"/ingest", "application/json", strings.NewReader(`{{`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIngest_MethodNotAllowed(t *testing.T) {
	server := newTestServer(telemetry.NewBuffer())
	defer server.Close()

	resp, err := http.Get(server.URL + "/ingest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	server := newTestServer(telemetry.NewBuffer())
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
