// Package agronomy holds the deterministic farm rules: the water-usage
// estimator, sensor status bands and irrigation usage statistics.
package agronomy

import (
	"math"
	"strings"
)

// DefaultBaseUsage is the base coefficient, in liters per square meter, used
// for crops without a specific entry.
const DefaultBaseUsage = 4.0

var baseUsage = map[string]float64{
	"tomato":     5.0,
	"pepper":     4.5,
	"maize":      4.5,
	"strawberry": 4.0,
	"potato":     4.0,
	"lettuce":    3.5,
	"wheat":      3.5,
	"cashew":     3.5,
	"cassava":    3.0,
	"rice":       7.0,
}

var cropAliases = map[string]string{
	"tomatoes":     "tomato",
	"peppers":      "pepper",
	"corn":         "maize",
	"strawberries": "strawberry",
	"potatoes":     "potato",
}

// WaterInput carries the readings the estimator works from.
type WaterInput struct {
	SoilMoisture float64 `json:"soil_moisture"`
	Humidity     float64 `json:"humidity"`
	Temperature  float64 `json:"temperature"`
	Crop         string  `json:"crop"`
}

// WaterEstimate is the estimator output with its intermediate factors.
type WaterEstimate struct {
	Crop              string  `json:"crop"`
	BaseUsage         float64 `json:"base_usage"`
	MoistureFactor    float64 `json:"moisture_factor"`
	TemperatureFactor float64 `json:"temperature_factor"`
	HumidityFactor    float64 `json:"humidity_factor"`
	LitersPerM2       float64 `json:"liters_per_m2"`
}

// NormalizeCrop maps a display crop name ("Tomatoes") to its coefficient key.
func NormalizeCrop(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := cropAliases[key]; ok {
		return alias
	}
	return key
}

// BaseUsage returns the base coefficient for a crop.
func BaseUsage(crop string) float64 {
	if v, ok := baseUsage[NormalizeCrop(crop)]; ok {
		return v
	}
	return DefaultBaseUsage
}

// EstimateWater returns the recommended water usage in liters per square
// meter:
//
//	base × (0.5+0.5·moisture) × (0.8+0.2·temperature) × (0.7+0.3·humidity)
//
// where each factor is clamped to [0,1]. Drier soil, hotter air and lower
// humidity never lower the estimate.
func EstimateWater(in WaterInput) WaterEstimate {
	moisture := clamp01(1 - in.SoilMoisture/100)
	temp := clamp01((in.Temperature - 10) / 25)
	humidity := clamp01(1 - in.Humidity/100)
	base := BaseUsage(in.Crop)

	usage := base * (0.5 + 0.5*moisture) * (0.8 + 0.2*temp) * (0.7 + 0.3*humidity)

	return WaterEstimate{
		Crop:              NormalizeCrop(in.Crop),
		BaseUsage:         base,
		MoistureFactor:    moisture,
		TemperatureFactor: temp,
		HumidityFactor:    humidity,
		LitersPerM2:       round2(usage),
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
