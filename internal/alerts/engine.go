package alerts

import (
	"context"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/config"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/events"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertStore persisted alerts as seen by the engine.
type AlertStore interface {
	Insert(ctx context.Context, alert *models.Alert) error
	HasRecentNew(ctx context.Context, deviceID, alertType string, since time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id, status string, actor *string) (*models.Alert, error)
}

// ThresholdSource provides the current thresholds document.
type ThresholdSource interface {
	GetCurrent(ctx context.Context) (*models.Thresholds, error)
}

// AttendanceLinker links alerts onto a worker's open attendance record.
type AttendanceLinker interface {
	FindOpenByUser(ctx context.Context, userID, workDate string) (*models.Attendance, error)
	AppendAlert(ctx context.Context, id, alertID string) error
}

// UserSource resolves users for notification.
type UserSource interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Engine stateless threshold rule evaluation plus a best-effort
// debounce guard against duplicate persisted alerts.
type Engine struct {
	cfg        *config.Config
	store      AlertStore
	thresholds ThresholdSource
	attendance AttendanceLinker
	users      UserSource
	notifier   notify.Notifier
	emitter    events.Emitter
	logger     *zap.Logger

	now func() time.Time
}

// NewEngine creates an alert engine.
func NewEngine(
	cfg *config.Config,
	store AlertStore,
	thresholds ThresholdSource,
	attendance AttendanceLinker,
	users UserSource,
	notifier notify.Notifier,
	emitter events.Emitter,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		cfg:        cfg,
		store:      store,
		thresholds: thresholds,
		attendance: attendance,
		users:      users,
		notifier:   notifier,
		emitter:    emitter,
		logger:     logger,
		now:        time.Now,
	}
}

// EvaluateReading evaluates one flushed reading. Rule evaluation never
// returns an error to the flusher; persistence problems are logged and
// the candidate is dropped.
func (e *Engine) EvaluateReading(ctx context.Context, reading models.Reading) {
	thresholds := e.currentThresholds(ctx)

	for _, candidate := range EvaluateRules(&reading.NormalizedReading, thresholds) {
		e.raise(ctx, reading, candidate)
	}
}

// currentThresholds loads the active thresholds document, falling back
// to configured defaults when none exists.
func (e *Engine) currentThresholds(ctx context.Context) *models.Thresholds {
	thresholds, err := e.thresholds.GetCurrent(ctx)
	if err != nil {
		e.logger.Debug("No thresholds configured, using defaults", zap.Error(err))
		return &models.Thresholds{
			TemperatureMax: e.cfg.Alerts.DefaultTemperatureMax,
			GasMax:         e.cfg.Alerts.DefaultGasMax,
			HeartRateMin:   e.cfg.Alerts.DefaultHeartRateMin,
			HeartRateMax:   e.cfg.Alerts.DefaultHeartRateMax,
		}
	}
	return thresholds
}

// raise persists one candidate unless an identical alert is still
// inside the debounce window.
func (e *Engine) raise(ctx context.Context, reading models.Reading, candidate Candidate) {
	now := e.now()

	// Best-effort debounce: concurrent evaluation can slip the odd
	// duplicate through, which is a UX nuisance, not a correctness bug.
	since := now.Add(-e.cfg.Alerts.DebounceWindow)
	recent, err := e.store.HasRecentNew(ctx, reading.DeviceID, candidate.Type, since)
	if err != nil {
		e.logger.Warn("Debounce check failed, raising anyway",
			zap.String("device_id", reading.DeviceID),
			zap.String("type", candidate.Type),
			zap.Error(err),
		)
	} else if recent {
		e.logger.Debug("Alert debounced",
			zap.String("device_id", reading.DeviceID),
			zap.String("type", candidate.Type),
		)
		return
	}

	alert := &models.Alert{
		ID:        uuid.New().String(),
		DeviceID:  reading.DeviceID,
		UserID:    reading.UserID,
		Type:      candidate.Type,
		Severity:  candidate.Severity,
		Status:    models.AlertStatusNew,
		Message:   candidate.Message,
		Value:     candidate.Value,
		Timestamp: now,
	}

	// Link the alert to the worker's open attendance record, if any.
	if reading.UserID != nil {
		workDate := now.Format("2006-01-02")
		if open, err := e.attendance.FindOpenByUser(ctx, *reading.UserID, workDate); err == nil && open != nil {
			alert.AttendanceID = &open.ID
		}
	}

	if err := e.store.Insert(ctx, alert); err != nil {
		e.logger.Error("Failed to persist alert",
			zap.String("device_id", reading.DeviceID),
			zap.String("type", candidate.Type),
			zap.Error(err),
		)
		return
	}

	if alert.AttendanceID != nil {
		if err := e.attendance.AppendAlert(ctx, *alert.AttendanceID, alert.ID); err != nil {
			e.logger.Warn("Failed to append alert to attendance",
				zap.String("attendance_id", *alert.AttendanceID),
				zap.Error(err),
			)
		}
	}

	e.logger.Info("Alert raised",
		zap.String("alert_id", alert.ID),
		zap.String("device_id", alert.DeviceID),
		zap.String("type", alert.Type),
		zap.String("severity", alert.Severity),
	)

	e.emitter.Emit(ctx, models.EventNewAlert, alert)
	e.dispatchNotification(ctx, alert)
}

// dispatchNotification sends the fire-and-forget email/SMS placeholder
// to the affected worker; failures never propagate.
func (e *Engine) dispatchNotification(ctx context.Context, alert *models.Alert) {
	if alert.UserID == nil {
		return
	}

	user, err := e.users.GetUser(ctx, *alert.UserID)
	if err != nil {
		e.logger.Debug("Cannot resolve user for alert notification",
			zap.String("user_id", *alert.UserID),
			zap.Error(err),
		)
		return
	}

	e.notifier.NotifyUser(ctx, *user, "Safety alert: "+alert.Type, alert.Message)
}

// Acknowledge moves an alert to acknowledged and emits alert_update.
func (e *Engine) Acknowledge(ctx context.Context, id string, actor string) (*models.Alert, error) {
	alert, err := e.store.UpdateStatus(ctx, id, models.AlertStatusAcknowledged, &actor)
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(ctx, models.EventAlertUpdate, alert)
	return alert, nil
}

// Resolve moves an alert to resolved and emits alert_update.
func (e *Engine) Resolve(ctx context.Context, id string, actor string) (*models.Alert, error) {
	alert, err := e.store.UpdateStatus(ctx, id, models.AlertStatusResolved, &actor)
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(ctx, models.EventAlertUpdate, alert)
	return alert, nil
}
