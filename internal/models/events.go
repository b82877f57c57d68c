package models

import (
	"encoding/json"
	"time"
)

// Event names emitted to dashboards
const (
	EventSensorUpdate       = "sensor_update"
	EventDeviceStatus       = "device_status"
	EventNewAlert           = "new_alert"
	EventAlertUpdate        = "alert_update"
	EventAlertEscalated     = "alert_escalated"
	EventAttendanceUpdate   = "attendance-update"
	EventAttendanceNotified = "attendance_notification"
)

// QRPayload scanned helmet QR code content
type QRPayload struct {
	Type string `json:"type"` // expected "HELMET"
	ID   string `json:"id"`   // device id
}

// ScanProposal result of the supervisor "propose" phase; nothing is
// committed until the proposal is approved.
type ScanProposal struct {
	Action       string  `json:"action"` // CHECK_IN / CHECK_OUT
	User         User    `json:"user"`
	Shift        Shift   `json:"shift"`
	AttendanceID *string `json:"attendance_id,omitempty"` // set for CHECK_OUT
}

// AuditLog structured before/after snapshot of an admin correction
type AuditLog struct {
	ID         string          `json:"id"`
	Actor      string          `json:"actor"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
