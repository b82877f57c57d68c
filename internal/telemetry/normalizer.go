package telemetry

import (
	"strconv"
	"strings"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"
)

// Ordered alias tables per canonical field. Sources name the same
// sensor differently; the first alias present in the payload wins.
var (
	heartRateAliases   = []string{"hr", "heartRate", "heart_rate", "heart", "pulse", "bpm"}
	temperatureAliases = []string{"temp", "temperature", "bodyTemp", "body_temp"}
	gasLevelAliases    = []string{"gas", "gasLevel", "gas_level", "mq2", "co"}
	helmetOnAliases    = []string{"helmet", "helmetOn", "helmet_on", "wearing"}
	latAliases         = []string{"lat", "latitude"}
	lngAliases         = []string{"lng", "lon", "long", "longitude"}
	batteryAliases     = []string{"battery", "bat", "batteryLevel", "battery_level"}
	sosAliases         = []string{"sos", "sosButton", "sos_button", "panic"}
	accidentAliases    = []string{"fall", "accident", "fallDetected", "fall_detected"}
	unsafeAliases      = []string{"unsafe", "unsafeBehavior", "unsafe_behavior"}
	humidityAliases    = []string{"hum", "humidity"}
	accelXAliases      = []string{"ax", "accelX", "accel_x"}
	accelYAliases      = []string{"ay", "accelY", "accel_y"}
	accelZAliases      = []string{"az", "accelZ", "accel_z"}
	accelTotalAliases  = []string{"accTotal", "accelTotal", "accel_total", "acceleration"}
)

// Normalize maps a loosely-typed source payload onto the canonical
// reading shape. Fields with no matching alias stay nil rather than
// defaulting to zero. Pure function, no side effects.
func Normalize(payload map[string]interface{}) *models.NormalizedReading {
	r := &models.NormalizedReading{
		HeartRate:   resolveNumber(payload, heartRateAliases),
		Temperature: resolveNumber(payload, temperatureAliases),
		GasLevel:    resolveNumber(payload, gasLevelAliases),
		HelmetOn:    resolveBool(payload, helmetOnAliases),
		Lat:         resolveNumber(payload, latAliases),
		Lng:         resolveNumber(payload, lngAliases),
		Battery:     resolveNumber(payload, batteryAliases),
		SOS:         resolveBool(payload, sosAliases),
		Accident:    resolveBool(payload, accidentAliases),
		Unsafe:      resolveBool(payload, unsafeAliases),
		Humidity:    resolveNumber(payload, humidityAliases),
	}

	accel := resolveAccel(payload)
	if accel != nil {
		r.Accel = accel
	}

	return r
}

// resolveAccel reads accelerometer values from a nested "accel" object
// or from flat top-level keys, nested object first.
func resolveAccel(payload map[string]interface{}) *models.AccelReading {
	source := payload
	if nested, ok := payload["accel"].(map[string]interface{}); ok {
		source = nested
	}

	accel := &models.AccelReading{
		X:     resolveNumber(source, append([]string{"x"}, accelXAliases...)),
		Y:     resolveNumber(source, append([]string{"y"}, accelYAliases...)),
		Z:     resolveNumber(source, append([]string{"z"}, accelZAliases...)),
		Total: resolveNumber(source, append([]string{"total"}, accelTotalAliases...)),
	}

	if accel.X == nil && accel.Y == nil && accel.Z == nil && accel.Total == nil {
		return nil
	}
	return accel
}

// resolveNumber returns the first alias with a usable numeric value.
func resolveNumber(payload map[string]interface{}, aliases []string) *float64 {
	for _, alias := range aliases {
		raw, ok := payload[alias]
		if !ok || raw == nil {
			continue
		}
		if f, ok := toFloat(raw); ok {
			return &f
		}
	}
	return nil
}

// resolveBool returns the first alias with a usable truthy/falsy value.
func resolveBool(payload map[string]interface{}, aliases []string) *bool {
	for _, alias := range aliases {
		raw, ok := payload[alias]
		if !ok || raw == nil {
			continue
		}
		if b, ok := toBool(raw); ok {
			return &b
		}
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toBool(v interface{}) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case float64:
		return val != 0, true
	case int:
		return val != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "on", "yes", "1":
			return true, true
		case "false", "off", "no", "0":
			return false, true
		}
	}
	return false, false
}
