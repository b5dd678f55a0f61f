package agronomy

import (
	"math"
	"testing"
	"time"

	"github.com/example/agrisense/internal/models"
)

func TestEstimateWaterMatchesFormula(t *testing.T) {
	in := WaterInput{SoilMoisture: 32, Humidity: 68, Temperature: 24.5, Crop: "Tomatoes"}
	got := EstimateWater(in)

	moisture := 1 - 32.0/100
	temp := (24.5 - 10) / 25
	humidity := 1 - 68.0/100
	want := 5.0 * (0.5 + 0.5*moisture) * (0.8 + 0.2*temp) * (0.7 + 0.3*humidity)
	want = math.Round(want*100) / 100

	if got.LitersPerM2 != want {
		t.Fatalf("expected %.2f, got %.2f", want, got.LitersPerM2)
	}
	if got.Crop != "tomato" || got.BaseUsage != 5.0 {
		t.Fatalf("unexpected crop resolution %+v", got)
	}
}

func TestEstimateWaterClampsFactors(t *testing.T) {
	got := EstimateWater(WaterInput{SoilMoisture: -20, Humidity: 150, Temperature: 60})
	if got.MoistureFactor != 1 || got.HumidityFactor != 0 || got.TemperatureFactor != 1 {
		t.Fatalf("expected clamped factors, got %+v", got)
	}
	// 4.0 × 1 × 1 × 0.7
	if got.LitersPerM2 != 2.8 {
		t.Fatalf("expected 2.8, got %.2f", got.LitersPerM2)
	}
}

func TestEstimateWaterMonotonic(t *testing.T) {
	base := WaterInput{SoilMoisture: 50, Humidity: 50, Temperature: 20, Crop: "maize"}
	prev := EstimateWater(base).LitersPerM2

	for m := 49.0; m >= 0; m -= 7 {
		in := base
		in.SoilMoisture = m
		got := EstimateWater(in).LitersPerM2
		if got < prev {
			t.Fatalf("usage decreased as moisture dropped to %.0f: %.2f < %.2f", m, got, prev)
		}
		prev = got
	}

	prev = EstimateWater(base).LitersPerM2
	for temp := 21.0; temp <= 45; temp += 4 {
		in := base
		in.Temperature = temp
		got := EstimateWater(in).LitersPerM2
		if got < prev {
			t.Fatalf("usage decreased as temperature rose to %.0f", temp)
		}
		prev = got
	}

	prev = EstimateWater(base).LitersPerM2
	for h := 49.0; h >= 0; h -= 6 {
		in := base
		in.Humidity = h
		got := EstimateWater(in).LitersPerM2
		if got < prev {
			t.Fatalf("usage decreased as humidity dropped to %.0f", h)
		}
		prev = got
	}
}

func TestBaseUsage(t *testing.T) {
	cases := map[string]float64{
		"Rice":        7.0,
		"corn":        4.5,
		" Cassava ":   3.0,
		"":            DefaultBaseUsage,
		"dragonfruit": DefaultBaseUsage,
	}
	for crop, want := range cases {
		if got := BaseUsage(crop); got != want {
			t.Errorf("BaseUsage(%q) = %.1f, want %.1f", crop, got, want)
		}
	}
}

func TestClassifyReading(t *testing.T) {
	cases := []struct {
		typ   models.SensorType
		value float64
		want  models.SensorStatus
	}{
		{models.SensorTemperature, 24.5, models.StatusNormal},
		{models.SensorTemperature, 33, models.StatusWarning},
		{models.SensorTemperature, 5, models.StatusCritical},
		{models.SensorHumidity, 72, models.StatusWarning},
		{models.SensorGas, 450, models.StatusWarning},
		{models.SensorGas, 1200, models.StatusCritical},
		{models.SensorSoil, 32, models.StatusWarning},
		{models.SensorSoil, 20, models.StatusCritical},
		{models.SensorType("pressure"), 9000, models.StatusNormal},
	}
	for _, tc := range cases {
		if got := ClassifyReading(tc.typ, tc.value); got != tc.want {
			t.Errorf("ClassifyReading(%s, %.1f) = %s, want %s", tc.typ, tc.value, got, tc.want)
		}
	}
}

func TestDescribeReading(t *testing.T) {
	title, msg := DescribeReading(models.SensorData{
		Type: models.SensorSoil, Value: 20, Unit: "%", Location: "Zone A",
	})
	if title != "Low Soil Moisture" {
		t.Fatalf("unexpected title %q", title)
	}
	if msg != "Zone A soil moisture at 20%, outside the optimal range (40-80%)." {
		t.Fatalf("unexpected message %q", msg)
	}

	title, msg = DescribeReading(models.SensorData{
		Type: models.SensorGas, Value: 1200, Unit: "ppm", Location: "Greenhouse",
	})
	if title != "High Gas Concentration" {
		t.Fatalf("unexpected title %q", title)
	}
	if msg != "Greenhouse gas concentration at 1200ppm, outside the optimal range (0-400ppm)." {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestSummarizeZones(t *testing.T) {
	next := time.Now().Add(time.Hour)
	zones := []models.IrrigationZone{
		{ID: "a", Status: models.ZoneActive, DurationMinutes: 15},
		{ID: "b", Status: models.ZoneScheduled, DurationMinutes: 10, NextScheduled: &next},
		{ID: "c", Status: models.ZoneInactive, DurationMinutes: 20},
		{ID: "d", Status: models.ZoneScheduled, DurationMinutes: 30},
	}
	got := SummarizeZones(zones)
	want := ZoneUsage{CurrentLiters: 37.5, ScheduledLiters: 25, ActiveZones: 1, TotalZones: 4}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestNeedsIrrigation(t *testing.T) {
	zone := models.IrrigationZone{
		Name: "Zone A", Status: models.ZoneInactive, AutomationEnabled: true, MoistureThreshold: 30,
	}
	low := models.SensorData{Type: models.SensorSoil, Value: 22, Location: "Zone A"}

	if !NeedsIrrigation(zone, low) {
		t.Fatal("expected low soil reading to trigger irrigation")
	}

	elsewhere := low
	elsewhere.Location = "Zone B"
	if NeedsIrrigation(zone, elsewhere) {
		t.Fatal("reading from another location must not trigger the zone")
	}

	manual := zone
	manual.AutomationEnabled = false
	if NeedsIrrigation(manual, low) {
		t.Fatal("zone without automation must not trigger")
	}

	running := zone
	running.Status = models.ZoneActive
	if NeedsIrrigation(running, low) {
		t.Fatal("already active zone must not trigger again")
	}
}
