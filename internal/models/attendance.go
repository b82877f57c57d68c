package models

import "time"

// Attendance status values
const (
	AttendancePresent    = "present"
	AttendanceCheckedOut = "checked_out"
	AttendanceLate       = "late"
	AttendanceAbsent     = "absent"
)

// Scan actions resolved by the attendance state machine
const (
	ActionCheckIn  = "CHECK_IN"
	ActionCheckOut = "CHECK_OUT"
)

// Attendance one record per (worker, calendar date)
type Attendance struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	SiteID          string     `json:"site_id"`
	WorkDate        string     `json:"work_date"` // "2006-01-02"
	CheckInTime     time.Time  `json:"check_in_time"`
	CheckOutTime    *time.Time `json:"check_out_time,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"` // set once both timestamps exist
	Status          string     `json:"status"`
	Verified        bool       `json:"verified"`
	JobRole         *string    `json:"job_role,omitempty"`
	AlertIDs        []string   `json:"alert_ids,omitempty"` // alerts raised while this record was open
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CheckedOut reports whether the record reached its terminal state.
func (a *Attendance) CheckedOut() bool {
	return a.CheckOutTime != nil
}

// ScanLog status values
const (
	ScanValid     = "valid"
	ScanDuplicate = "duplicate"
	ScanInvalid   = "invalid"
	ScanGeoFail   = "geo_fail"
)

// ScanLog append-only audit record of a scan attempt
type ScanLog struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"user_id,omitempty"`
	DeviceID  *string   `json:"device_id,omitempty"`
	SiteID    *string   `json:"site_id,omitempty"`
	ScanType  string    `json:"scan_type"` // CHECK_IN / CHECK_OUT
	Status    string    `json:"status"`    // valid / duplicate / invalid / geo_fail
	Reason    string    `json:"reason,omitempty"`
	Lat       *float64  `json:"lat,omitempty"`
	Lng       *float64  `json:"lng,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
}
