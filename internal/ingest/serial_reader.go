package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/telemetry"

	"go.uber.org/zap"
)

// SerialReader ingests line-delimited JSON telemetry from a gateway
// serial port (or any stream). Each line carries its own deviceId;
// lines that don't parse are skipped, a stuck gateway must not wedge
// the reader.
type SerialReader struct {
	r      io.Reader
	buffer *telemetry.Buffer
	logger *zap.Logger

	now func() time.Time
}

// NewSerialReader creates a reader over an open stream.
func NewSerialReader(r io.Reader, buffer *telemetry.Buffer, logger *zap.Logger) *SerialReader {
	return &SerialReader{
		r:      r,
		buffer: buffer,
		logger: logger,
		now:    time.Now,
	}
}

// Run consumes the stream until EOF, a read error, or context
// cancellation.
func (s *SerialReader) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var raw map[string]interface{}
		if err := json.Unmarshal(line, &raw); err != nil {
			s.logger.Debug("Skipping unparseable serial line", zap.Error(err))
			continue
		}
		deviceID := stringField(raw, "deviceId", "device_id", "id")
		if deviceID == "" {
			s.logger.Debug("Skipping serial line without device id")
			continue
		}

		s.buffer.Put(telemetry.Entry{
			DeviceID:   deviceID,
			Reading:    telemetry.Normalize(raw),
			Source:     "serial",
			ReceivedAt: s.now(),
		})
	}
	return scanner.Err()
}

func stringField(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
