package models

import "time"

// AlertType sets the severity of an alert.
type AlertType string

const (
	AlertInfo    AlertType = "info"
	AlertWarning AlertType = "warning"
	AlertError   AlertType = "error"
	AlertSuccess AlertType = "success"
)

// EntityType names the kind of record an alert refers to.
type EntityType string

const (
	EntityCrop       EntityType = "crop"
	EntityIrrigation EntityType = "irrigation"
	EntitySensor     EntityType = "sensor"
)

// Alert is a notification shown on the dashboard.
type Alert struct {
	ID                string     `json:"id" gorm:"primaryKey;size:64"`
	Title             string     `json:"title" gorm:"size:256"`
	Message           string     `json:"message" gorm:"type:text"`
	Type              AlertType  `json:"type" gorm:"size:16"`
	Timestamp         time.Time  `json:"timestamp" gorm:"index"`
	IsRead            bool       `json:"is_read"`
	Dismissed         bool       `json:"-" gorm:"index"`
	RelatedEntityID   string     `json:"related_entity_id,omitempty" gorm:"size:64"`
	RelatedEntityType EntityType `json:"related_entity_type,omitempty" gorm:"size:16"`
}

// TableName overrides the default table name.
func (Alert) TableName() string {
	return "alerts"
}
