package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT broker settings
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// Config helmetx-core service configuration
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	HTTP struct {
		ListenAddr string // ingest + ops endpoint listen address
	}

	Telemetry struct {
		FlushInterval time.Duration // buffer drain cadence, default 10s
	}

	Alerts struct {
		DebounceWindow time.Duration // duplicate alert suppression window

		// Fallback thresholds used when no thresholds row exists yet.
		DefaultTemperatureMax float64
		DefaultGasMax         float64
		DefaultHeartRateMin   float64
		DefaultHeartRateMax   float64
	}

	Escalation struct {
		SweepInterval time.Duration // sweep cadence
		MaxAge        time.Duration // critical alert age before escalation
	}

	Attendance struct {
		DefaultGeofenceRadius float64 // meters, used when a site has no radius
		LateGraceMinutes      int     // minutes after shift start before "late"
		DefaultShiftStart     string  // "HH:MM", system fallback shift
		DefaultShiftEnd       string
	}

	Notify struct {
		WebhookURL string // notification gateway base URL; empty disables dispatch
		Timeout    time.Duration
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "helmetx")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "helmetx-core")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))

	cfg.HTTP.ListenAddr = getEnv("HTTP_LISTEN_ADDR", ":8080")

	cfg.Telemetry.FlushInterval = time.Duration(getEnvInt("FLUSH_INTERVAL_MS", 10000)) * time.Millisecond

	cfg.Alerts.DebounceWindow = 60 * time.Second
	cfg.Alerts.DefaultTemperatureMax = getEnvFloat("THRESHOLD_TEMPERATURE", 38)
	cfg.Alerts.DefaultGasMax = getEnvFloat("THRESHOLD_GAS_LEVEL", 300)
	cfg.Alerts.DefaultHeartRateMin = getEnvFloat("THRESHOLD_HEART_RATE_MIN", 50)
	cfg.Alerts.DefaultHeartRateMax = getEnvFloat("THRESHOLD_HEART_RATE_MAX", 120)

	cfg.Escalation.SweepInterval = 60 * time.Second
	cfg.Escalation.MaxAge = 5 * time.Minute

	cfg.Attendance.DefaultGeofenceRadius = getEnvFloat("GEOFENCE_RADIUS_M", 100)
	cfg.Attendance.LateGraceMinutes = getEnvInt("LATE_GRACE_MINUTES", 15)
	cfg.Attendance.DefaultShiftStart = getEnv("DEFAULT_SHIFT_START", "08:00")
	cfg.Attendance.DefaultShiftEnd = getEnv("DEFAULT_SHIFT_END", "17:00")

	cfg.Notify.WebhookURL = getEnv("NOTIFY_WEBHOOK_URL", "")
	cfg.Notify.Timeout = time.Duration(getEnvInt("NOTIFY_TIMEOUT_MS", 5000)) * time.Millisecond

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if cfg.Telemetry.FlushInterval <= 0 {
		return nil, fmt.Errorf("flush interval must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
