package models

// Site worksite with a circular geofence
type Site struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	RadiusM    float64 `json:"radius_m"` // geofence radius in meters
	ShiftStart string  `json:"shift_start,omitempty"` // "HH:MM", site default shift
	ShiftEnd   string  `json:"shift_end,omitempty"`
}

// Shift a named work shift window
type Shift struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartTime string `json:"start_time"` // "HH:MM"
	EndTime   string `json:"end_time"`
}

// User roles
const (
	RoleWorker     = "worker"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// User a worker, supervisor or administrator
type User struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Role    string  `json:"role"`
	SiteID  *string `json:"site_id,omitempty"`
	ShiftID *string `json:"shift_id,omitempty"`
}

// Thresholds alert threshold configuration (single mutable document;
// the most recently created row wins when duplicates exist)
type Thresholds struct {
	ID             string  `json:"id"`
	TemperatureMax float64 `json:"temperature_max"`
	GasMax         float64 `json:"gas_max"`
	HeartRateMin   float64 `json:"heart_rate_min"`
	HeartRateMax   float64 `json:"heart_rate_max"`
}
