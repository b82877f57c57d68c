package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/config"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/events"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/notify"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scan rejection errors. These describe conditions a client can
// recover from and are returned alongside the matching ScanLog entry.
var (
	ErrOutsideGeofence   = errors.New("scan location is outside the site geofence")
	ErrNoCheckIn         = errors.New("no check-in found for today")
	ErrAlreadyCheckedOut = errors.New("already checked out today")
	ErrNoSiteAssigned    = errors.New("worker has no site assigned")
	ErrInvalidQR         = errors.New("unrecognized QR payload")
	ErrDeviceUnassigned  = errors.New("helmet is not assigned to a worker")
	ErrNotAuthorized     = errors.New("actor may not approve attendance scans")
	ErrUnknownAction     = errors.New("unknown scan action")
)

const workDateLayout = "2006-01-02"

// Store persisted attendance records as seen by the state machine.
type Store interface {
	GetByID(ctx context.Context, id string) (*models.Attendance, error)
	FindByUserAndDate(ctx context.Context, userID, workDate string) (*models.Attendance, error)
	CreateCheckIn(ctx context.Context, att *models.Attendance) (*models.Attendance, bool, error)
	SetCheckOut(ctx context.Context, id string, checkOut time.Time, durationMinutes int, status string, verified bool) (*models.Attendance, error)
	UpdateTimes(ctx context.Context, id string, checkIn time.Time, checkOut *time.Time, durationMinutes *int, status string) (*models.Attendance, error)
}

// ScanLogStore append-only audit trail of scan attempts.
type ScanLogStore interface {
	Insert(ctx context.Context, log *models.ScanLog) error
}

// UserSource resolves workers, supervisors and shifts.
type UserSource interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetByDevice(ctx context.Context, deviceID string) (*models.User, error)
	GetShift(ctx context.Context, id string) (*models.Shift, error)
}

// SiteSource resolves worksites for geofence checks.
type SiteSource interface {
	GetSite(ctx context.Context, id string) (*models.Site, error)
}

// DeviceStates provides last-known device coordinates for scans that
// carry no explicit location.
type DeviceStates interface {
	GetState(ctx context.Context, deviceID string) (*models.Device, error)
}

// AuditStore records before/after snapshots of admin corrections.
type AuditStore interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
}

// ScanRequest one scan attempt against the attendance state machine.
type ScanRequest struct {
	UserID   string
	DeviceID string // helmet used for the scan, may be empty
	Lat      *float64
	Lng      *float64
	JobRole  *string
}

// Service the per-day attendance state machine. Each worker moves
// NONE -> PRESENT -> CHECKED_OUT exactly once per work date; the
// database unique index on (user_id, work_date) backs the first
// transition and the check_out_time guard backs the second.
type Service struct {
	cfg      *config.Config
	store    Store
	scans    ScanLogStore
	users    UserSource
	sites    SiteSource
	devices  DeviceStates
	audits   AuditStore
	emitter  events.Emitter
	notifier notify.Notifier
	logger   *zap.Logger

	now func() time.Time
}

// NewService creates an attendance service.
func NewService(
	cfg *config.Config,
	store Store,
	scans ScanLogStore,
	users UserSource,
	sites SiteSource,
	devices DeviceStates,
	audits AuditStore,
	emitter events.Emitter,
	notifier notify.Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		scans:    scans,
		users:    users,
		sites:    sites,
		devices:  devices,
		audits:   audits,
		emitter:  emitter,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// ScanIn handles a worker-initiated check-in scan.
func (s *Service) ScanIn(ctx context.Context, req ScanRequest) (*models.Attendance, error) {
	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load worker: %w", err)
	}
	return s.checkIn(ctx, user, req, false)
}

// ScanOut handles a worker-initiated check-out scan.
func (s *Service) ScanOut(ctx context.Context, req ScanRequest) (*models.Attendance, error) {
	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load worker: %w", err)
	}
	return s.checkOut(ctx, user, req, false)
}

// checkIn is the NONE -> PRESENT transition, shared by self-service
// scans and supervisor approvals.
func (s *Service) checkIn(ctx context.Context, user *models.User, req ScanRequest, verified bool) (*models.Attendance, error) {
	now := s.now()
	workDate := now.Format(workDateLayout)

	if user.SiteID == nil {
		s.logScan(ctx, user, req, models.ActionCheckIn, models.ScanInvalid, "no site assigned")
		return nil, ErrNoSiteAssigned
	}
	site, err := s.sites.GetSite(ctx, *user.SiteID)
	if err != nil {
		return nil, fmt.Errorf("load site %s: %w", *user.SiteID, err)
	}

	existing, err := s.store.FindByUserAndDate(ctx, user.ID, workDate)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("look up attendance: %w", err)
	}
	if existing != nil {
		// Duplicate check-in is not an error; return the day's record
		// unchanged, whether it is still open or already closed.
		reason := "already checked in"
		if existing.CheckedOut() {
			reason = "already checked out today"
		}
		s.logScan(ctx, user, req, models.ActionCheckIn, models.ScanDuplicate, reason)
		return existing, nil
	}

	// A check-in outside the geofence is rejected outright.
	if lat, lng, ok := s.scanCoords(ctx, req); ok {
		radius := site.RadiusM
		if radius <= 0 {
			radius = s.cfg.Attendance.DefaultGeofenceRadius
		}
		dist := DistanceMeters(lat, lng, site.Lat, site.Lng)
		if dist > radius {
			s.logScan(ctx, user, req, models.ActionCheckIn, models.ScanGeoFail,
				fmt.Sprintf("%.0fm from site center, geofence radius %.0fm", dist, radius))
			return nil, ErrOutsideGeofence
		}
	}

	status := models.AttendancePresent
	shift := s.resolveShift(ctx, user, site)
	if start, ok := clockOn(now, shift.StartTime); ok {
		grace := time.Duration(s.cfg.Attendance.LateGraceMinutes) * time.Minute
		if now.After(start.Add(grace)) {
			status = models.AttendanceLate
		}
	}

	att := &models.Attendance{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		SiteID:      site.ID,
		WorkDate:    workDate,
		CheckInTime: now,
		Status:      status,
		Verified:    verified,
		JobRole:     req.JobRole,
	}
	created, inserted, err := s.store.CreateCheckIn(ctx, att)
	if err != nil {
		return nil, fmt.Errorf("create check-in: %w", err)
	}
	if !inserted {
		// Lost a concurrent race for the (user, date) slot.
		s.logScan(ctx, user, req, models.ActionCheckIn, models.ScanDuplicate, "already checked in")
		return created, nil
	}

	s.logScan(ctx, user, req, models.ActionCheckIn, models.ScanValid, "")
	s.emitter.Emit(ctx, models.EventAttendanceUpdate, created)
	s.logger.Info("Worker checked in",
		zap.String("userId", user.ID),
		zap.String("siteId", site.ID),
		zap.String("status", status))
	return created, nil
}

// checkOut is the PRESENT -> CHECKED_OUT transition. Geofence
// violations are logged but never block a check-out; keeping workers
// stuck "present" because they left the site helps nobody.
func (s *Service) checkOut(ctx context.Context, user *models.User, req ScanRequest, verified bool) (*models.Attendance, error) {
	now := s.now()
	workDate := now.Format(workDateLayout)

	existing, err := s.store.FindByUserAndDate(ctx, user.ID, workDate)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logScan(ctx, user, req, models.ActionCheckOut, models.ScanInvalid, "no check-in found")
			return nil, ErrNoCheckIn
		}
		return nil, fmt.Errorf("look up attendance: %w", err)
	}
	if existing.CheckedOut() {
		s.logScan(ctx, user, req, models.ActionCheckOut, models.ScanDuplicate, "already checked out today")
		return nil, ErrAlreadyCheckedOut
	}

	scanStatus := models.ScanValid
	scanReason := ""
	if lat, lng, ok := s.scanCoords(ctx, req); ok {
		if site, siteErr := s.sites.GetSite(ctx, existing.SiteID); siteErr == nil {
			radius := site.RadiusM
			if radius <= 0 {
				radius = s.cfg.Attendance.DefaultGeofenceRadius
			}
			if dist := DistanceMeters(lat, lng, site.Lat, site.Lng); dist > radius {
				scanStatus = models.ScanGeoFail
				scanReason = fmt.Sprintf("%.0fm from site center, check-out accepted", dist)
			}
		}
	}

	duration := int(math.Round(now.Sub(existing.CheckInTime).Minutes()))
	updated, err := s.store.SetCheckOut(ctx, existing.ID, now, duration, models.AttendanceCheckedOut, verified)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// A concurrent scan closed the record first.
			s.logScan(ctx, user, req, models.ActionCheckOut, models.ScanDuplicate, "already checked out today")
			return nil, ErrAlreadyCheckedOut
		}
		return nil, fmt.Errorf("set check-out: %w", err)
	}

	s.logScan(ctx, user, req, models.ActionCheckOut, scanStatus, scanReason)
	s.emitter.Emit(ctx, models.EventAttendanceUpdate, updated)
	s.logger.Info("Worker checked out",
		zap.String("userId", user.ID),
		zap.Int("durationMinutes", duration))
	return updated, nil
}

// scanCoords resolves the scan location: explicit request coordinates
// win, otherwise the helmet's last-known position from the device
// shadow. Returns false when no location is known.
func (s *Service) scanCoords(ctx context.Context, req ScanRequest) (float64, float64, bool) {
	if req.Lat != nil && req.Lng != nil {
		return *req.Lat, *req.Lng, true
	}
	if req.DeviceID == "" || s.devices == nil {
		return 0, 0, false
	}
	state, err := s.devices.GetState(ctx, req.DeviceID)
	if err != nil {
		s.logger.Debug("No device state for scan location",
			zap.String("deviceId", req.DeviceID), zap.Error(err))
		return 0, 0, false
	}
	if state.Lat == nil || state.Lng == nil {
		return 0, 0, false
	}
	return *state.Lat, *state.Lng, true
}

// resolveShift picks the worker's shift window: assigned shift, then
// the site default, then the system default.
func (s *Service) resolveShift(ctx context.Context, user *models.User, site *models.Site) models.Shift {
	if user.ShiftID != nil {
		shift, err := s.users.GetShift(ctx, *user.ShiftID)
		if err == nil {
			return *shift
		}
		s.logger.Warn("Assigned shift not found, falling back",
			zap.String("shiftId", *user.ShiftID), zap.Error(err))
	}
	if site != nil && site.ShiftStart != "" && site.ShiftEnd != "" {
		return models.Shift{Name: "site default", StartTime: site.ShiftStart, EndTime: site.ShiftEnd}
	}
	return models.Shift{
		Name:      "system default",
		StartTime: s.cfg.Attendance.DefaultShiftStart,
		EndTime:   s.cfg.Attendance.DefaultShiftEnd,
	}
}

// logScan appends one audit entry for a scan attempt. The scan log is
// best-effort; a failed insert never blocks the transition itself.
func (s *Service) logScan(ctx context.Context, user *models.User, req ScanRequest, scanType, status, reason string) {
	entry := &models.ScanLog{
		ID:        uuid.New().String(),
		ScanType:  scanType,
		Status:    status,
		Reason:    reason,
		Lat:       req.Lat,
		Lng:       req.Lng,
		ScannedAt: s.now(),
	}
	if user != nil {
		entry.UserID = &user.ID
		entry.SiteID = user.SiteID
	}
	if req.DeviceID != "" {
		deviceID := req.DeviceID
		entry.DeviceID = &deviceID
	}
	if err := s.scans.Insert(ctx, entry); err != nil {
		s.logger.Error("Failed to write scan log", zap.Error(err))
	}
}

// clockOn places an "HH:MM" clock time onto the given day.
func clockOn(day time.Time, hhmm string) (time.Time, bool) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, day.Location()), true
}

// CorrectionRequest an admin edit of an existing attendance record.
type CorrectionRequest struct {
	ActorID      string
	AttendanceID string
	CheckInTime  *time.Time
	CheckOutTime *time.Time
}

// Correct applies an admin correction to a record's timestamps. The
// stored duration is always recomputed from the corrected timestamps,
// and a before/after snapshot lands in the audit log.
func (s *Service) Correct(ctx context.Context, req CorrectionRequest) (*models.Attendance, error) {
	actor, err := s.users.GetUser(ctx, req.ActorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}
	if actor.Role != models.RoleAdmin {
		return nil, ErrNotAuthorized
	}

	before, err := s.store.GetByID(ctx, req.AttendanceID)
	if err != nil {
		return nil, fmt.Errorf("load attendance %s: %w", req.AttendanceID, err)
	}

	checkIn := before.CheckInTime
	if req.CheckInTime != nil {
		checkIn = *req.CheckInTime
	}
	checkOut := before.CheckOutTime
	if req.CheckOutTime != nil {
		checkOut = req.CheckOutTime
	}

	status := before.Status
	var duration *int
	if checkOut != nil {
		d := int(math.Round(checkOut.Sub(checkIn).Minutes()))
		duration = &d
		status = models.AttendanceCheckedOut
	}

	updated, err := s.store.UpdateTimes(ctx, before.ID, checkIn, checkOut, duration, status)
	if err != nil {
		return nil, fmt.Errorf("apply correction: %w", err)
	}

	s.recordAudit(ctx, actor.ID, before, updated)
	s.emitter.Emit(ctx, models.EventAttendanceUpdate, updated)
	s.logger.Info("Attendance corrected",
		zap.String("attendanceId", before.ID),
		zap.String("actor", actor.ID))
	return updated, nil
}

// recordAudit writes the correction snapshot. The correction is already
// committed at this point, so an audit failure is logged, not returned.
func (s *Service) recordAudit(ctx context.Context, actorID string, before, after *models.Attendance) {
	beforeJSON, err := json.Marshal(before)
	if err != nil {
		s.logger.Error("Failed to snapshot attendance before correction", zap.Error(err))
		return
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		s.logger.Error("Failed to snapshot attendance after correction", zap.Error(err))
		return
	}
	entry := &models.AuditLog{
		ID:         uuid.New().String(),
		Actor:      actorID,
		Action:     "attendance_correction",
		EntityType: "attendance",
		EntityID:   before.ID,
		Before:     beforeJSON,
		After:      afterJSON,
		CreatedAt:  s.now(),
	}
	if err := s.audits.Insert(ctx, entry); err != nil {
		s.logger.Error("Failed to write audit log", zap.Error(err))
	}
}
