package ingest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/telemetry"

	"go.uber.org/zap"
)

// Router wraps the standard library mux; the HTTP surface here is too
// small to justify a routing dependency.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

// Handle registers a handler function.
func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HTTPHandler accepts telemetry pushed over HTTP, for gateways that
// cannot speak MQTT.
type HTTPHandler struct {
	buffer *telemetry.Buffer
	logger *zap.Logger

	now func() time.Time
}

// NewHTTPHandler creates the ingest handler.
func NewHTTPHandler(buffer *telemetry.Buffer, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		buffer: buffer,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterRoutes wires the ingest endpoints onto a router.
func (h *HTTPHandler) RegisterRoutes(r *Router) {
	r.Handle("/ingest", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Ingest(w, req)
	})
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// Ingest enqueues one reading. The device id comes from the body or,
// failing that, the deviceId query parameter.
func (h *HTTPHandler) Ingest(w http.ResponseWriter, req *http.Request) {
	var raw map[string]interface{}
	if err := json.NewDecoder(req.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	deviceID := stringField(raw, "deviceId", "device_id", "id")
	if deviceID == "" {
		deviceID = req.URL.Query().Get("deviceId")
	}
	if deviceID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "deviceId is required"})
		return
	}

	h.buffer.Put(telemetry.Entry{
		DeviceID:   deviceID,
		Reading:    telemetry.Normalize(raw),
		Source:     "http",
		ReceivedAt: h.now(),
	})

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"queued":   true,
		"deviceId": deviceID,
	})
}
