package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/attendance"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/mqtt"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStatusStore struct {
	deviceIDs []string
	statuses  []string
	batteries []*float64
	err       error
}

func (f *fakeStatusStore) SetStatus(ctx context.Context, deviceID, status string, battery *float64, at time.Time) (*models.Device, error) {
	f.deviceIDs = append(f.deviceIDs, deviceID)
	f.statuses = append(f.statuses, status)
	f.batteries = append(f.batteries, battery)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Device{DeviceID: deviceID, Status: status}, nil
}

type fakeScans struct {
	checkIns  []attendance.ScanRequest
	checkOuts []attendance.ScanRequest
	err       error
}

func (f *fakeScans) ScanIn(ctx context.Context, req attendance.ScanRequest) (*models.Attendance, error) {
	f.checkIns = append(f.checkIns, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Attendance{UserID: req.UserID}, nil
}

func (f *fakeScans) ScanOut(ctx context.Context, req attendance.ScanRequest) (*models.Attendance, error) {
	f.checkOuts = append(f.checkOuts, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Attendance{UserID: req.UserID}, nil
}

type fakeSubscriber struct {
	topics []string
	qos    []byte
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	f.topics = append(f.topics, topic)
	f.qos = append(f.qos, qos)
	return nil
}

func newConsumer(buffer *telemetry.Buffer, devices *fakeStatusStore, scans *fakeScans) *MQTTConsumer {
	c := NewMQTTConsumer(nil, 1, buffer, devices, scans, zap.NewNop())
	c.now = func() time.Time { return time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC) }
	return c
}

func TestStart_SubscribesWithConfiguredQoS(t *testing.T) {
	sub := &fakeSubscriber{}
	c := NewMQTTConsumer(sub, 2, telemetry.NewBuffer(), &fakeStatusStore{}, &fakeScans{}, zap.NewNop())

	require.NoError(t, c.Start())
	assert.Equal(t, []string{topicData, topicStatus, topicScan}, sub.topics)
	assert.Equal(t, []byte{2, 2, 2}, sub.qos)
}

func TestDeviceIDFromTopic(t *testing.T) {
	id, ok := deviceIDFromTopic("helmet/H42/data")
	assert.True(t, ok)
	assert.Equal(t, "H42", id)

	for _, topic := range []string{"helmet/data", "helmet//data", "badge/H1/data", "helmet/H1/data/extra"} {
		_, ok := deviceIDFromTopic(topic)
		assert.False(t, ok, topic)
	}
}

func TestHandleData_BuffersNormalizedReading(t *testing.T) {
	buffer := telemetry.NewBuffer()
	c := newConsumer(buffer, &fakeStatusStore{}, &fakeScans{})

	err := c.handleData("helmet/H1/data", []byte(`{"temp": 37.2, "hr": 80}`))
	require.NoError(t, err)

	entries := buffer.SnapshotAndClear()
	require.Contains(t, entries, "H1")
	entry := entries["H1"]
	assert.Equal(t, "mqtt", entry.Source)
	require.NotNil(t, entry.Reading.Temperature)
	assert.Equal(t, 37.2, *entry.Reading.Temperature)
	require.NotNil(t, entry.Reading.HeartRate)
	assert.Equal(t, 80.0, *entry.Reading.HeartRate)
}

func TestHandleData_MalformedPayloadDropped(t *testing.T) {
	buffer := telemetry.NewBuffer()
	c := newConsumer(buffer, &fakeStatusStore{}, &fakeScans{})

	err := c.handleData("helmet/H1/data", []byte(`{not json`))
	require.NoError(t, err)
	assert.Zero(t, buffer.Len())
}

func TestHandleStatus_AppliesTransition(t *testing.T) {
	devices := &fakeStatusStore{}
	c := newConsumer(telemetry.NewBuffer(), devices, &fakeScans{})

	err := c.handleStatus("helmet/H1/status", []byte(`{"status": "offline", "battery": 12}`))
	require.NoError(t, err)

	require.Len(t, devices.deviceIDs, 1)
	assert.Equal(t, "H1", devices.deviceIDs[0])
	assert.Equal(t, "offline", devices.statuses[0])
	require.NotNil(t, devices.batteries[0])
	assert.Equal(t, 12.0, *devices.batteries[0])
}

func TestHandleScan_RoutesByAction(t *testing.T) {
	scans := &fakeScans{}
	c := newConsumer(telemetry.NewBuffer(), &fakeStatusStore{}, scans)

	require.NoError(t, c.handleScan("helmet/H1/scan",
		[]byte(`{"userId": "w1", "action": "CHECK_IN", "lat": 0, "lng": 0.0005}`)))
	require.NoError(t, c.handleScan("helmet/H1/scan",
		[]byte(`{"userId": "w1", "action": "CHECK_OUT"}`)))

	require.Len(t, scans.checkIns, 1)
	assert.Equal(t, "w1", scans.checkIns[0].UserID)
	assert.Equal(t, "H1", scans.checkIns[0].DeviceID)
	require.NotNil(t, scans.checkIns[0].Lng)
	assert.Equal(t, 0.0005, *scans.checkIns[0].Lng)
	assert.Len(t, scans.checkOuts, 1)
}

func TestHandleScan_RejectionSwallowed(t *testing.T) {
	scans := &fakeScans{err: attendance.ErrOutsideGeofence}
	c := newConsumer(telemetry.NewBuffer(), &fakeStatusStore{}, scans)

	err := c.handleScan("helmet/H1/scan", []byte(`{"userId": "w1", "action": "CHECK_IN"}`))
	assert.NoError(t, err)
}

func TestHandleScan_UnknownActionDropped(t *testing.T) {
	scans := &fakeScans{}
	c := newConsumer(telemetry.NewBuffer(), &fakeStatusStore{}, scans)

	require.NoError(t, c.handleScan("helmet/H1/scan", []byte(`{"userId": "w1", "action": "WAVE"}`)))
	assert.Empty(t, scans.checkIns)
	assert.Empty(t, scans.checkOuts)
}

func TestHandleScan_MissingUserDropped(t *testing.T) {
	scans := &fakeScans{}
	c := newConsumer(telemetry.NewBuffer(), &fakeStatusStore{}, scans)

	require.NoError(t, c.handleScan("helmet/H1/scan", []byte(`{"action": "CHECK_IN"}`)))
	assert.Empty(t, scans.checkIns)
}
