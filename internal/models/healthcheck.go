package models

import "time"

// HealthCheck is the persisted record of one image health check.
type HealthCheck struct {
	ID              uint         `gorm:"primaryKey"`
	RequestID       string       `gorm:"column:request_id;uniqueIndex;size:64"`
	UserID          string       `gorm:"column:user_id;size:64;index"`
	CropID          string       `gorm:"column:crop_id;size:64;index"`
	SHA1Hash        string       `gorm:"column:sha1_hash;size:40;index"`
	CropName        string       `gorm:"column:crop_name;size:64"`
	HealthStatus    HealthStatus `gorm:"column:health_status;size:16"`
	DiseaseName     string       `gorm:"column:disease_name;size:256"`
	Recommendations string       `gorm:"column:recommendations;type:text"`
	Source          string       `gorm:"column:source;size:16"`
	FailureKind     string       `gorm:"column:failure_kind;size:16"`
	FailureMessage  string       `gorm:"column:failure_message;type:text"`
	LatencyMs       int64        `gorm:"column:latency_ms"`
	CreatedAt       time.Time    `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (HealthCheck) TableName() string {
	return "health_checks"
}

// All returns every model managed by the schema migration.
func All() []any {
	return []any{
		&SensorData{},
		&HistoricalData{},
		&Crop{},
		&IrrigationZone{},
		&TeamMember{},
		&Alert{},
		&HealthCheck{},
		&Operator{},
	}
}
