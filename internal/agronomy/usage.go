package agronomy

import "github.com/example/agrisense/internal/models"

// LitersPerMinute is the nominal flow of one irrigation zone.
const LitersPerMinute = 2.5

// ZoneUsage summarizes the water drawn by the irrigation zones.
type ZoneUsage struct {
	CurrentLiters   float64 `json:"current_liters"`
	ScheduledLiters float64 `json:"scheduled_liters"`
	ActiveZones     int     `json:"active_zones"`
	TotalZones      int     `json:"total_zones"`
}

// SummarizeZones computes the usage of active zones and the planned usage of
// scheduled zones that have a next run.
func SummarizeZones(zones []models.IrrigationZone) ZoneUsage {
	usage := ZoneUsage{TotalZones: len(zones)}
	for _, z := range zones {
		switch z.Status {
		case models.ZoneActive:
			usage.ActiveZones++
			usage.CurrentLiters += float64(z.DurationMinutes) * LitersPerMinute
		case models.ZoneScheduled:
			if z.NextScheduled != nil {
				usage.ScheduledLiters += float64(z.DurationMinutes) * LitersPerMinute
			}
		}
	}
	return usage
}

// NeedsIrrigation reports whether a soil reading should trigger the zone's
// automated irrigation.
func NeedsIrrigation(zone models.IrrigationZone, reading models.SensorData) bool {
	return zone.AutomationEnabled &&
		reading.Type == models.SensorSoil &&
		zone.Name == reading.Location &&
		zone.Status != models.ZoneActive &&
		reading.Value < zone.MoistureThreshold
}
