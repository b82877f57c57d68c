package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/attendance"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/mqtt"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/telemetry"

	"go.uber.org/zap"
)

// Helmet topics. The middle segment is the device id.
const (
	topicData   = "helmet/+/data"
	topicStatus = "helmet/+/status"
	topicScan   = "helmet/+/scan"
)

// Subscriber the MQTT subscription surface the consumer needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// DeviceStatusStore applies online/offline transitions.
type DeviceStatusStore interface {
	SetStatus(ctx context.Context, deviceID, status string, battery *float64, at time.Time) (*models.Device, error)
}

// AttendanceScans self-service scan entry points.
type AttendanceScans interface {
	ScanIn(ctx context.Context, req attendance.ScanRequest) (*models.Attendance, error)
	ScanOut(ctx context.Context, req attendance.ScanRequest) (*models.Attendance, error)
}

// MQTTConsumer routes helmet messages: telemetry into the latest-value
// buffer, status transitions into the device state store, scans into
// the attendance state machine. Malformed messages are dropped with a
// log line; an MQTT broker redelivering garbage helps nobody.
type MQTTConsumer struct {
	client  Subscriber
	qos     byte
	buffer  *telemetry.Buffer
	devices DeviceStatusStore
	scans   AttendanceScans
	logger  *zap.Logger

	now func() time.Time
}

// NewMQTTConsumer creates a consumer over an established MQTT client.
func NewMQTTConsumer(
	client Subscriber,
	qos byte,
	buffer *telemetry.Buffer,
	devices DeviceStatusStore,
	scans AttendanceScans,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		client:  client,
		qos:     qos,
		buffer:  buffer,
		devices: devices,
		scans:   scans,
		logger:  logger,
		now:     time.Now,
	}
}

// Start subscribes to all helmet topics.
func (c *MQTTConsumer) Start() error {
	if err := c.client.Subscribe(topicData, c.qos, c.handleData); err != nil {
		return fmt.Errorf("subscribe %s: %w", topicData, err)
	}
	if err := c.client.Subscribe(topicStatus, c.qos, c.handleStatus); err != nil {
		return fmt.Errorf("subscribe %s: %w", topicStatus, err)
	}
	if err := c.client.Subscribe(topicScan, c.qos, c.handleScan); err != nil {
		return fmt.Errorf("subscribe %s: %w", topicScan, err)
	}
	c.logger.Info("MQTT consumer subscribed",
		zap.Strings("topics", []string{topicData, topicStatus, topicScan}),
		zap.Uint8("qos", c.qos))
	return nil
}

func (c *MQTTConsumer) handleData(topic string, payload []byte) error {
	deviceID, ok := deviceIDFromTopic(topic)
	if !ok {
		c.logger.Warn("Unparseable helmet topic", zap.String("topic", topic))
		return nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		c.logger.Warn("Dropping malformed telemetry payload",
			zap.String("deviceId", deviceID), zap.Error(err))
		return nil
	}

	c.buffer.Put(telemetry.Entry{
		DeviceID:   deviceID,
		Reading:    telemetry.Normalize(raw),
		Source:     "mqtt",
		ReceivedAt: c.now(),
	})
	return nil
}

type statusMessage struct {
	Status  string   `json:"status"`
	Battery *float64 `json:"battery,omitempty"`
}

func (c *MQTTConsumer) handleStatus(topic string, payload []byte) error {
	deviceID, ok := deviceIDFromTopic(topic)
	if !ok {
		c.logger.Warn("Unparseable helmet topic", zap.String("topic", topic))
		return nil
	}

	var msg statusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.logger.Warn("Dropping malformed status payload",
			zap.String("deviceId", deviceID), zap.Error(err))
		return nil
	}

	if _, err := c.devices.SetStatus(context.Background(), deviceID, msg.Status, msg.Battery, c.now()); err != nil {
		c.logger.Error("Failed to apply device status",
			zap.String("deviceId", deviceID),
			zap.String("status", msg.Status),
			zap.Error(err))
	}
	return nil
}

type scanMessage struct {
	UserID  string   `json:"userId"`
	Action  string   `json:"action"` // CHECK_IN / CHECK_OUT
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	JobRole *string  `json:"jobRole,omitempty"`
}

func (c *MQTTConsumer) handleScan(topic string, payload []byte) error {
	deviceID, ok := deviceIDFromTopic(topic)
	if !ok {
		c.logger.Warn("Unparseable helmet topic", zap.String("topic", topic))
		return nil
	}

	var msg scanMessage
	if err := json.Unmarshal(payload, &msg); err != nil || msg.UserID == "" {
		c.logger.Warn("Dropping malformed scan payload",
			zap.String("deviceId", deviceID), zap.Error(err))
		return nil
	}

	req := attendance.ScanRequest{
		UserID:   msg.UserID,
		DeviceID: deviceID,
		Lat:      msg.Lat,
		Lng:      msg.Lng,
		JobRole:  msg.JobRole,
	}

	ctx := context.Background()
	var err error
	switch msg.Action {
	case models.ActionCheckIn:
		_, err = c.scans.ScanIn(ctx, req)
	case models.ActionCheckOut:
		_, err = c.scans.ScanOut(ctx, req)
	default:
		c.logger.Warn("Dropping scan with unknown action",
			zap.String("deviceId", deviceID), zap.String("action", msg.Action))
		return nil
	}
	if err != nil {
		// Rejections are a normal outcome of the state machine and are
		// already in the scan log; real failures get an error line.
		if isScanRejection(err) {
			c.logger.Info("Scan rejected",
				zap.String("userId", msg.UserID),
				zap.String("action", msg.Action),
				zap.String("reason", err.Error()))
		} else {
			c.logger.Error("Scan processing failed",
				zap.String("userId", msg.UserID), zap.Error(err))
		}
	}
	return nil
}

func isScanRejection(err error) bool {
	return errors.Is(err, attendance.ErrOutsideGeofence) ||
		errors.Is(err, attendance.ErrNoCheckIn) ||
		errors.Is(err, attendance.ErrAlreadyCheckedOut) ||
		errors.Is(err, attendance.ErrNoSiteAssigned)
}

// deviceIDFromTopic extracts the device id from "helmet/<id>/<kind>".
func deviceIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "helmet" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
