package alerts

import (
	"fmt"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"
)

// Candidate one rule hit before debounce and persistence
type Candidate struct {
	Type     string
	Severity string
	Message  string
	Value    *float64
}

// severityByType configured severity mapping per alert type
var severityByType = map[string]string{
	models.AlertSOS:            models.SeverityCritical,
	models.AlertAccident:       models.SeverityCritical,
	models.AlertHelmetOff:      models.SeverityMedium,
	models.AlertHighTemp:       models.SeverityHigh,
	models.AlertGasLeak:        models.SeverityCritical,
	models.AlertAbnormalHR:     models.SeverityHigh,
	models.AlertUnsafeBehavior: models.SeverityLow,
}

// EvaluateRules runs threshold rules over one flushed reading in fixed
// precedence order. Pure function: zero or more candidates, no I/O.
// Nil reading fields mean "no data" and never trip a rule.
func EvaluateRules(reading *models.NormalizedReading, thresholds *models.Thresholds) []Candidate {
	var candidates []Candidate

	add := func(alertType, message string, value *float64) {
		candidates = append(candidates, Candidate{
			Type:     alertType,
			Severity: severityByType[alertType],
			Message:  message,
			Value:    value,
		})
	}

	if reading.SOS != nil && *reading.SOS {
		add(models.AlertSOS, "SOS button pressed", nil)
	}

	if reading.Accident != nil && *reading.Accident {
		add(models.AlertAccident, "Fall or accident detected", nil)
	}

	if reading.HelmetOn != nil && !*reading.HelmetOn {
		add(models.AlertHelmetOff, "Helmet removed", nil)
	}

	if reading.Temperature != nil && *reading.Temperature > thresholds.TemperatureMax {
		add(models.AlertHighTemp,
			fmt.Sprintf("Temperature %.1f above threshold %.1f", *reading.Temperature, thresholds.TemperatureMax),
			reading.Temperature)
	}

	if reading.GasLevel != nil && *reading.GasLevel > thresholds.GasMax {
		add(models.AlertGasLeak,
			fmt.Sprintf("Gas level %.1f above threshold %.1f", *reading.GasLevel, thresholds.GasMax),
			reading.GasLevel)
	}

	if reading.HeartRate != nil &&
		(*reading.HeartRate < thresholds.HeartRateMin || *reading.HeartRate > thresholds.HeartRateMax) {
		add(models.AlertAbnormalHR,
			fmt.Sprintf("Heart rate %.0f outside [%.0f, %.0f]", *reading.HeartRate, thresholds.HeartRateMin, thresholds.HeartRateMax),
			reading.HeartRate)
	}

	if reading.Unsafe != nil && *reading.Unsafe {
		add(models.AlertUnsafeBehavior, "Unsafe behavior flagged", nil)
	}

	return candidates
}
