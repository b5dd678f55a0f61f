package models

import "time"

// HealthStatus is the verdict assigned to a crop, either by the remote
// classifier or by the local fallback generator.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthAtRisk   HealthStatus = "at-risk"
	HealthDiseased HealthStatus = "diseased"
)

// Valid reports whether s is one of the three known verdicts.
func (s HealthStatus) Valid() bool {
	switch s {
	case HealthHealthy, HealthAtRisk, HealthDiseased:
		return true
	}
	return false
}

// Crop is a planting tracked on the dashboard.
type Crop struct {
	ID                      string       `json:"id" gorm:"primaryKey;size:64"`
	Name                    string       `json:"name" gorm:"size:128"`
	Type                    string       `json:"type" gorm:"size:64"`
	PlantedDate             time.Time    `json:"planted_date"`
	GrowthStage             string       `json:"growth_stage" gorm:"size:64"`
	LastIrrigation          time.Time    `json:"last_irrigation"`
	NextScheduledIrrigation *time.Time   `json:"next_scheduled_irrigation"`
	HealthStatus            HealthStatus `json:"health_status" gorm:"size:16;index"`
	Location                string       `json:"location" gorm:"size:128"`
	ImageURL                string       `json:"image_url" gorm:"size:512"`
}

// TableName overrides the default table name.
func (Crop) TableName() string {
	return "crops"
}
