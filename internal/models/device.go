package models

import "time"

// Device status values
const (
	DeviceOnline  = "online"
	DeviceOffline = "offline"
)

// Device last-known state of a wearable helmet unit
type Device struct {
	DeviceID     string     `json:"device_id"`
	UserID       *string    `json:"user_id,omitempty"` // assigned worker, nil when unassigned
	Status       string     `json:"status"`            // online / offline
	BatteryLevel *float64   `json:"battery_level,omitempty"`
	Lat          *float64   `json:"lat,omitempty"`
	Lng          *float64   `json:"lng,omitempty"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
