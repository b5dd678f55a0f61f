// Package fixtures provides the records a fresh store is seeded with.
package fixtures

import (
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/example/agrisense/internal/models"
)

// HistoryDays is the length of the generated sensor histories.
const HistoryDays = 30

// Set groups every seed record.
type Set struct {
	Sensors []models.SensorData
	History []models.HistoricalData
	Crops   []models.Crop
	Zones   []models.IrrigationZone
	Team    []models.TeamMember
	Alerts  []models.Alert
}

type series struct {
	base, variance float64
}

var historySeries = map[models.SensorType]series{
	models.SensorTemperature: {base: 24, variance: 3},
	models.SensorHumidity:    {base: 70, variance: 10},
	models.SensorGas:         {base: 400, variance: 100},
	models.SensorSoil:        {base: 35, variance: 15},
}

// Build returns the seed records relative to now. rng drives the history
// generator; pass a seeded source for reproducible output.
func Build(now time.Time, rng *rand.Rand) Set {
	var history []models.HistoricalData
	for _, t := range models.SensorTypes {
		s := historySeries[t]
		history = append(history, GenerateHistory(t, now, HistoryDays, s.base, s.variance, rng)...)
	}

	return Set{
		Sensors: sensors(now),
		History: history,
		Crops:   crops(),
		Zones:   zones(),
		Team:    team(now),
		Alerts:  alerts(now),
	}
}

// GenerateHistory returns days+1 daily points ending at now, each base plus a
// uniform offset in [-variance, variance], rounded to one decimal.
func GenerateHistory(t models.SensorType, now time.Time, days int, base, variance float64, rng *rand.Rand) []models.HistoricalData {
	points := make([]models.HistoricalData, 0, days+1)
	for i := days; i >= 0; i-- {
		offset := (rng.Float64()*2 - 1) * variance
		points = append(points, models.HistoricalData{
			SensorType: t,
			Timestamp:  now.AddDate(0, 0, -i),
			Value:      math.Round((base+offset)*10) / 10,
		})
	}
	return points
}

func sensors(now time.Time) []models.SensorData {
	reading := func(id string, t models.SensorType, value float64, location string, status models.SensorStatus) models.SensorData {
		return models.SensorData{
			ID: id, Type: t, Value: value, Unit: t.Unit(),
			Timestamp: now, Location: location, Status: status,
		}
	}
	return []models.SensorData{
		reading("temp-1", models.SensorTemperature, 24.5, "Greenhouse 1", models.StatusNormal),
		reading("hum-1", models.SensorHumidity, 68, "Greenhouse 1", models.StatusNormal),
		reading("daz-1", models.SensorGas, 450, "Greenhouse 1", models.StatusWarning),
		reading("soil-1", models.SensorSoil, 32, "Zone A", models.StatusCritical),
		reading("temp-2", models.SensorTemperature, 22.8, "Greenhouse 2", models.StatusNormal),
		reading("hum-2", models.SensorHumidity, 72, "Greenhouse 2", models.StatusWarning),
	}
}

func date(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func crops() []models.Crop {
	return []models.Crop{
		{
			ID: "crop-1", Name: "Tomatoes", Type: "Vegetable",
			PlantedDate: date(2023, time.March, 15, 0, 0), GrowthStage: "Fruiting",
			LastIrrigation:          date(2023, time.June, 10, 8, 30),
			NextScheduledIrrigation: ptr(date(2023, time.June, 12, 8, 30)),
			HealthStatus:            models.HealthHealthy, Location: "Zone A",
			ImageURL: "https://images.pexels.com/photos/533280/pexels-photo-533280.jpeg",
		},
		{
			ID: "crop-2", Name: "Lettuce", Type: "Leafy Green",
			PlantedDate: date(2023, time.April, 1, 0, 0), GrowthStage: "Mature",
			LastIrrigation:          date(2023, time.June, 10, 9, 0),
			NextScheduledIrrigation: ptr(date(2023, time.June, 11, 9, 0)),
			HealthStatus:            models.HealthAtRisk, Location: "Zone B",
			ImageURL: "https://images.pexels.com/photos/2329440/pexels-photo-2329440.jpeg",
		},
		{
			ID: "crop-3", Name: "Strawberries", Type: "Berry",
			PlantedDate: date(2023, time.February, 10, 0, 0), GrowthStage: "Flowering",
			LastIrrigation:          date(2023, time.June, 10, 7, 45),
			NextScheduledIrrigation: ptr(date(2023, time.June, 12, 7, 45)),
			HealthStatus:            models.HealthHealthy, Location: "Zone C",
			ImageURL: "https://images.pexels.com/photos/46174/strawberries-berries-fruit-freshness-46174.jpeg",
		},
		{
			ID: "crop-4", Name: "Peppers", Type: "Vegetable",
			PlantedDate: date(2023, time.March, 20, 0, 0), GrowthStage: "Fruiting",
			LastIrrigation:          date(2023, time.June, 10, 8, 15),
			NextScheduledIrrigation: ptr(date(2023, time.June, 12, 8, 15)),
			HealthStatus:            models.HealthDiseased, Location: "Zone A",
			ImageURL: "https://images.pexels.com/photos/128536/pexels-photo-128536.jpeg",
		},
	}
}

func zones() []models.IrrigationZone {
	return []models.IrrigationZone{
		{
			ID: "zone-a", Name: "Zone A", Status: models.ZoneActive,
			LastActivated:   ptr(date(2023, time.June, 10, 8, 30)),
			NextScheduled:   ptr(date(2023, time.June, 12, 8, 30)),
			DurationMinutes: 15, CropIDs: models.IDList{"crop-1", "crop-4"},
			AutomationEnabled: true, MoistureThreshold: 30,
		},
		{
			ID: "zone-b", Name: "Zone B", Status: models.ZoneScheduled,
			LastActivated:   ptr(date(2023, time.June, 10, 9, 0)),
			NextScheduled:   ptr(date(2023, time.June, 11, 9, 0)),
			DurationMinutes: 10, CropIDs: models.IDList{"crop-2"},
			AutomationEnabled: true, MoistureThreshold: 25,
		},
		{
			ID: "zone-c", Name: "Zone C", Status: models.ZoneInactive,
			LastActivated:   ptr(date(2023, time.June, 10, 7, 45)),
			NextScheduled:   ptr(date(2023, time.June, 12, 7, 45)),
			DurationMinutes: 20, CropIDs: models.IDList{"crop-3"},
			AutomationEnabled: false, MoistureThreshold: 35,
		},
	}
}

func team(now time.Time) []models.TeamMember {
	names := []string{
		"Ikram Benfellah",
		"Fatima Zahra Fadel",
		"Mostapha Id bella",
		"Anwar meliari",
		"Zahra maddah",
		"Ziad chi l3ayba",
	}
	members := make([]models.TeamMember, 0, len(names))
	for i, name := range names {
		n := i + 1
		members = append(members, models.TeamMember{
			ID:         strconv.Itoa(n),
			Name:       name,
			Role:       "Student",
			Avatar:     "/images/photo" + strconv.Itoa(n) + ".png",
			Status:     models.PresenceOnline,
			Bio:        "Passionate about smart agriculture and technology.",
			LastActive: now,
		})
	}
	return members
}

func alerts(now time.Time) []models.Alert {
	return []models.Alert{
		{
			ID: "alert-1", Title: "Low Soil Moisture",
			Message:         "Zone A soil moisture below critical threshold (30%). Automated irrigation initiated.",
			Type:            models.AlertWarning,
			Timestamp:       now.Add(-2 * time.Hour),
			RelatedEntityID: "zone-a", RelatedEntityType: models.EntityIrrigation,
		},
		{
			ID: "alert-2", Title: "High Humidity Detected",
			Message:   "Greenhouse 2 humidity at 72%, exceeding optimal range. Check ventilation.",
			Type:      models.AlertWarning,
			Timestamp: now.Add(-4 * time.Hour), IsRead: true,
			RelatedEntityID: "hum-2", RelatedEntityType: models.EntitySensor,
		},
		{
			ID: "alert-3", Title: "Potential Disease Detected",
			Message:         "AI analysis indicates potential fungal infection in Peppers crop. Inspection recommended.",
			Type:            models.AlertError,
			Timestamp:       now.AddDate(0, 0, -1),
			RelatedEntityID: "crop-4", RelatedEntityType: models.EntityCrop,
		},
		{
			ID: "alert-4", Title: "Irrigation Complete",
			Message:   "Zone B irrigation cycle completed successfully.",
			Type:      models.AlertSuccess,
			Timestamp: now.AddDate(0, 0, -2), IsRead: true,
			RelatedEntityID: "zone-b", RelatedEntityType: models.EntityIrrigation,
		},
	}
}
