package alerts

import (
	"testing"

	"github.com/Kanabar-rutvi/HelmetX-sub000/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

func testThresholds() *models.Thresholds {
	return &models.Thresholds{
		TemperatureMax: 38,
		GasMax:         300,
		HeartRateMin:   50,
		HeartRateMax:   120,
	}
}

func TestEvaluateRules_PrecedenceOrder(t *testing.T) {
	reading := &models.NormalizedReading{
		SOS:         boolPtr(true),
		Accident:    boolPtr(true),
		HelmetOn:    boolPtr(false),
		Temperature: floatPtr(39),
		GasLevel:    floatPtr(400),
		HeartRate:   floatPtr(140),
		Unsafe:      boolPtr(true),
	}

	candidates := EvaluateRules(reading, testThresholds())
	require.Len(t, candidates, 7)

	types := make([]string, len(candidates))
	for i, c := range candidates {
		types[i] = c.Type
	}
	assert.Equal(t, []string{
		models.AlertSOS,
		models.AlertAccident,
		models.AlertHelmetOff,
		models.AlertHighTemp,
		models.AlertGasLeak,
		models.AlertAbnormalHR,
		models.AlertUnsafeBehavior,
	}, types)
}

func TestEvaluateRules_NoDataTripsNothing(t *testing.T) {
	candidates := EvaluateRules(&models.NormalizedReading{}, testThresholds())
	assert.Empty(t, candidates)
}

func TestEvaluateRules_ZeroReadingIsNotMissing(t *testing.T) {
	// heart rate 0 is a reading, and an abnormal one
	reading := &models.NormalizedReading{HeartRate: floatPtr(0)}

	candidates := EvaluateRules(reading, testThresholds())
	require.Len(t, candidates, 1)
	assert.Equal(t, models.AlertAbnormalHR, candidates[0].Type)
}

func TestEvaluateRules_ThresholdBoundaries(t *testing.T) {
	// reading equal to the threshold does not trip the rule
	atMax := &models.NormalizedReading{
		Temperature: floatPtr(38),
		GasLevel:    floatPtr(300),
		HeartRate:   floatPtr(120),
	}
	assert.Empty(t, EvaluateRules(atMax, testThresholds()))

	overMax := &models.NormalizedReading{Temperature: floatPtr(38.1)}
	candidates := EvaluateRules(overMax, testThresholds())
	require.Len(t, candidates, 1)
	assert.Equal(t, models.AlertHighTemp, candidates[0].Type)
	assert.Equal(t, models.SeverityHigh, candidates[0].Severity)
	require.NotNil(t, candidates[0].Value)
	assert.Equal(t, 38.1, *candidates[0].Value)
}

func TestEvaluateRules_HelmetOnIsFine(t *testing.T) {
	reading := &models.NormalizedReading{HelmetOn: boolPtr(true)}
	assert.Empty(t, EvaluateRules(reading, testThresholds()))
}

func TestEvaluateRules_LowHeartRate(t *testing.T) {
	reading := &models.NormalizedReading{HeartRate: floatPtr(40)}

	candidates := EvaluateRules(reading, testThresholds())
	require.Len(t, candidates, 1)
	assert.Equal(t, models.AlertAbnormalHR, candidates[0].Type)
}
