package agronomy

import (
	"fmt"
	"strings"

	"github.com/example/agrisense/internal/models"
)

type band struct {
	normalLow, normalHigh   float64
	warningLow, warningHigh float64
}

var bands = map[models.SensorType]band{
	models.SensorTemperature: {normalLow: 18, normalHigh: 30, warningLow: 10, warningHigh: 35},
	models.SensorHumidity:    {normalLow: 40, normalHigh: 70, warningLow: 30, warningHigh: 85},
	models.SensorGas:         {normalLow: 0, normalHigh: 400, warningLow: 0, warningHigh: 1000},
	models.SensorSoil:        {normalLow: 40, normalHigh: 80, warningLow: 30, warningHigh: 90},
}

// ClassifyReading grades a reading against the band of its sensor type.
// Unknown types are always normal.
func ClassifyReading(t models.SensorType, value float64) models.SensorStatus {
	b, ok := bands[t]
	if !ok {
		return models.StatusNormal
	}
	switch {
	case value >= b.normalLow && value <= b.normalHigh:
		return models.StatusNormal
	case value >= b.warningLow && value <= b.warningHigh:
		return models.StatusWarning
	default:
		return models.StatusCritical
	}
}

// DescribeReading returns the alert title and message for a reading outside
// its normal band.
func DescribeReading(s models.SensorData) (title, message string) {
	b := bands[s.Type]
	direction := "High"
	if s.Value < b.normalLow {
		direction = "Low"
	}

	var label string
	switch s.Type {
	case models.SensorTemperature:
		label = "Temperature"
	case models.SensorHumidity:
		label = "Humidity"
	case models.SensorGas:
		label = "Gas Concentration"
	case models.SensorSoil:
		label = "Soil Moisture"
	default:
		label = "Reading"
	}

	title = fmt.Sprintf("%s %s", direction, label)
	message = fmt.Sprintf("%s %s at %g%s, outside the optimal range (%g-%g%s).",
		s.Location, strings.ToLower(label), s.Value, s.Unit, b.normalLow, b.normalHigh, s.Unit)
	return title, message
}
