package models

import "time"

// Alert types in evaluation precedence order
const (
	AlertSOS            = "sos"
	AlertAccident       = "accident"
	AlertHelmetOff      = "helmet_off"
	AlertHighTemp       = "high_temp"
	AlertGasLeak        = "gas_leak"
	AlertAbnormalHR     = "abnormal_hr"
	AlertUnsafeBehavior = "unsafe_behavior"
)

// Alert severity levels
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert status values
const (
	AlertStatusNew          = "new"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
)

// Alert a raised safety alert
type Alert struct {
	ID             string     `json:"id"`
	DeviceID       string     `json:"device_id"`
	UserID         *string    `json:"user_id,omitempty"`
	Type           string     `json:"type"`
	Severity       string     `json:"severity"`
	Status         string     `json:"status"`
	Message        string     `json:"message"`
	Value          *float64   `json:"value,omitempty"` // offending reading, when numeric
	AttendanceID   *string    `json:"attendance_id,omitempty"`
	Escalated      bool       `json:"escalated"`
	EscalatedAt    *time.Time `json:"escalated_at,omitempty"`
	AcknowledgedBy *string    `json:"acknowledged_by,omitempty"`
	Timestamp      time.Time  `json:"timestamp"` // origin time, immutable
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
