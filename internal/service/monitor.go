package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/alerts"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/attendance"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/config"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/database"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/devices"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/escalation"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/events"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/ingest"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/mqtt"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/notify"
	redisclient "github.com/Kanabar-rutvi/HelmetX-sub000/internal/redis"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/repository"
	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/telemetry"

	"go.uber.org/zap"
)

// Monitor the worksite safety core: ingestion, telemetry flushing,
// alert evaluation, attendance and escalation behind one Start/Stop.
type Monitor struct {
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB
	redisClient *redisclient.Client
	mqttClient  *mqtt.Client

	buffer     *telemetry.Buffer
	flusher    *telemetry.Flusher
	engine     *alerts.Engine
	attendance *attendance.Service
	sweeper    *escalation.Sweeper
	consumer   *ingest.MQTTConsumer
	httpServer *http.Server
}

// NewMonitor connects the backing stores and wires every component.
func NewMonitor(cfg *config.Config, logger *zap.Logger) (*Monitor, error) {
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient := redisclient.NewRedisClient(&cfg.Redis)
	if err := redisclient.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	mqttClient, err := mqtt.NewClient(&cfg.MQTT, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	// Repositories
	deviceRepo := repository.NewDeviceRepository(db, logger)
	readingRepo := repository.NewReadingRepository(db, logger)
	attendanceRepo := repository.NewAttendanceRepository(db, logger)
	scanLogRepo := repository.NewScanLogRepository(db, logger)
	alertRepo := repository.NewAlertRepository(db, logger)
	siteRepo := repository.NewSiteRepository(db, logger)
	userRepo := repository.NewUserRepository(db, logger)
	thresholdRepo := repository.NewThresholdRepository(db, logger)
	auditRepo := repository.NewAuditRepository(db, logger)

	emitter := events.NewRedisEmitter(redisClient, logger)

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout, logger)
	} else {
		logger.Warn("No notification webhook configured, notifications disabled")
	}

	stateStore := devices.NewStateStore(deviceRepo, redisClient, emitter, logger)

	engine := alerts.NewEngine(cfg, alertRepo, thresholdRepo, attendanceRepo, userRepo, notifier, emitter, logger)

	buffer := telemetry.NewBuffer()
	flusher := telemetry.NewFlusher(buffer, cfg.Telemetry.FlushInterval,
		readingRepo, stateStore, engine, emitter, logger)

	attendanceSvc := attendance.NewService(cfg, attendanceRepo, scanLogRepo,
		userRepo, siteRepo, stateStore, auditRepo, emitter, notifier, logger)

	sweeper := escalation.NewSweeper(cfg, alertRepo, userRepo, notifier, emitter, logger)

	consumer := ingest.NewMQTTConsumer(mqttClient, cfg.MQTT.QoS, buffer, stateStore, attendanceSvc, logger)

	router := ingest.NewRouter(logger)
	ingest.NewHTTPHandler(buffer, logger).RegisterRoutes(router)
	httpServer := &http.Server{
		Addr:    cfg.HTTP.ListenAddr,
		Handler: router,
	}

	return &Monitor{
		config:      cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		mqttClient:  mqttClient,
		buffer:      buffer,
		flusher:     flusher,
		engine:      engine,
		attendance:  attendanceSvc,
		sweeper:     sweeper,
		consumer:    consumer,
		httpServer:  httpServer,
	}, nil
}

// Attendance exposes the attendance service for operational tooling.
func (m *Monitor) Attendance() *attendance.Service {
	return m.attendance
}

// Alerts exposes the alert engine for operational tooling.
func (m *Monitor) Alerts() *alerts.Engine {
	return m.engine
}

// Start subscribes the consumer and runs the background loops until the
// context is cancelled or a component fails.
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info("Starting helmetx-core",
		zap.Duration("flushInterval", m.config.Telemetry.FlushInterval),
		zap.String("httpAddr", m.config.HTTP.ListenAddr),
	)

	if err := m.consumer.Start(); err != nil {
		return fmt.Errorf("failed to start MQTT consumer: %w", err)
	}

	errChan := make(chan error, 2)

	go func() {
		if err := m.flusher.Start(ctx); err != nil {
			errChan <- fmt.Errorf("flusher: %w", err)
		}
	}()
	go m.sweeper.Start(ctx)
	go func() {
		if err := m.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errChan:
		return err
	}
}

// Stop flushes what's buffered and closes every connection.
func (m *Monitor) Stop(ctx context.Context) error {
	m.logger.Info("Stopping helmetx-core")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.httpServer.Shutdown(shutdownCtx); err != nil {
		m.logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	// Drain whatever arrived since the last tick so shutdown does not
	// lose up to a full flush interval of telemetry.
	m.flusher.Flush(shutdownCtx)

	m.mqttClient.Disconnect()

	if err := redisclient.Close(m.redisClient); err != nil {
		m.logger.Error("Failed to close redis client", zap.Error(err))
	}
	if err := database.Close(m.db); err != nil {
		m.logger.Error("Failed to close database", zap.Error(err))
	}

	m.logger.Info("helmetx-core stopped")
	return nil
}
