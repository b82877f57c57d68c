package models

import "time"

// AccelReading accelerometer sample
type AccelReading struct {
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	Z     *float64 `json:"z,omitempty"`
	Total *float64 `json:"total,omitempty"`
}

// NormalizedReading canonical sensor values resolved from a raw payload.
// Pointer fields stay nil when the source carried no value, so rule
// evaluation can tell "no data" apart from a zero reading.
type NormalizedReading struct {
	HeartRate   *float64      `json:"heart_rate,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	GasLevel    *float64      `json:"gas_level,omitempty"`
	HelmetOn    *bool         `json:"helmet_on,omitempty"`
	Lat         *float64      `json:"lat,omitempty"`
	Lng         *float64      `json:"lng,omitempty"`
	Battery     *float64      `json:"battery,omitempty"`
	SOS         *bool         `json:"sos,omitempty"`
	Accident    *bool         `json:"accident,omitempty"`
	Unsafe      *bool         `json:"unsafe,omitempty"` // unsafe-behavior flag raised by the device firmware
	Humidity    *float64      `json:"humidity,omitempty"`
	Accel       *AccelReading `json:"accel,omitempty"`
}

// Reading one persisted telemetry row (one per device per flush cycle)
type Reading struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	UserID    *string   `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	NormalizedReading
}
