package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/config"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/events"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/notify"

	"go.uber.org/zap"
)

// AlertStore stale-alert queries as seen by the sweeper.
type AlertStore interface {
	FindEscalatable(ctx context.Context, cutoff time.Time) ([]models.Alert, error)
	MarkEscalated(ctx context.Context, id string, at time.Time) (bool, error)
}

// AdminSource lists the administrators to page.
type AdminSource interface {
	ListAdmins(ctx context.Context) ([]models.User, error)
}

// Sweeper periodically escalates critical alerts nobody acknowledged.
// The escalated flag is claimed with a conditional update, so an alert
// pages the admins exactly once no matter how many sweeps see it.
type Sweeper struct {
	cfg      *config.Config
	store    AlertStore
	admins   AdminSource
	notifier notify.Notifier
	emitter  events.Emitter
	logger   *zap.Logger

	now func() time.Time
}

// NewSweeper creates an escalation sweeper.
func NewSweeper(
	cfg *config.Config,
	store AlertStore,
	admins AdminSource,
	notifier notify.Notifier,
	emitter events.Emitter,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		cfg:      cfg,
		store:    store,
		admins:   admins,
		notifier: notifier,
		emitter:  emitter,
		logger:   logger,
		now:      time.Now,
	}
}

// Start runs the sweep loop until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Escalation.SweepInterval)
	defer ticker.Stop()

	s.logger.Info("Escalation sweeper started",
		zap.Duration("interval", s.cfg.Escalation.SweepInterval),
		zap.Duration("maxAge", s.cfg.Escalation.MaxAge))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Escalation sweeper stopped")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("Escalation sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep escalates every critical alert that has sat unacknowledged
// longer than the configured maximum age.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.now()
	cutoff := now.Add(-s.cfg.Escalation.MaxAge)

	stale, err := s.store.FindEscalatable(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find escalatable alerts: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	for i := range stale {
		s.escalate(ctx, &stale[i], now)
	}
	return nil
}

func (s *Sweeper) escalate(ctx context.Context, alert *models.Alert, now time.Time) {
	claimed, err := s.store.MarkEscalated(ctx, alert.ID, now)
	if err != nil {
		s.logger.Error("Failed to mark alert escalated",
			zap.String("alertId", alert.ID), zap.Error(err))
		return
	}
	if !claimed {
		// Another sweep got here first.
		return
	}

	s.logger.Warn("Escalating unacknowledged critical alert",
		zap.String("alertId", alert.ID),
		zap.String("deviceId", alert.DeviceID),
		zap.String("type", alert.Type),
		zap.Time("raisedAt", alert.Timestamp))

	s.emitter.Emit(ctx, models.EventAlertEscalated, alert)

	admins, err := s.admins.ListAdmins(ctx)
	if err != nil {
		s.logger.Error("Failed to list admins for escalation",
			zap.String("alertId", alert.ID), zap.Error(err))
		return
	}
	age := now.Sub(alert.Timestamp).Round(time.Second)
	subject := "ESCALATION: unacknowledged " + alert.Type + " alert"
	message := fmt.Sprintf("Critical alert on device %s has been unacknowledged for %s: %s",
		alert.DeviceID, age, alert.Message)
	for i := range admins {
		s.notifier.NotifyUser(ctx, admins[i], subject, message)
	}
}
