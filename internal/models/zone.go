package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ZoneStatus is the irrigation state of a zone.
type ZoneStatus string

const (
	ZoneActive    ZoneStatus = "active"
	ZoneInactive  ZoneStatus = "inactive"
	ZoneScheduled ZoneStatus = "scheduled"
)

// IDList is a list of loosely typed identifiers stored as a JSON column.
// The ids are not checked against any other table.
type IDList []string

// Value implements driver.Valuer.
func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *IDList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("id list: unsupported column type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(l))
}

// IrrigationZone is a named irrigation area with a schedule, crop
// assignments and an automation toggle.
type IrrigationZone struct {
	ID                string     `json:"id" gorm:"primaryKey;size:64"`
	Name              string     `json:"name" gorm:"size:128;index"`
	Status            ZoneStatus `json:"status" gorm:"size:16"`
	LastActivated     *time.Time `json:"last_activated"`
	NextScheduled     *time.Time `json:"next_scheduled"`
	DurationMinutes   int        `json:"duration"`
	CropIDs           IDList     `json:"crop_ids" gorm:"type:text"`
	AutomationEnabled bool       `json:"automation_enabled"`
	MoistureThreshold float64    `json:"moisture_threshold"`
}

// TableName overrides the default table name.
func (IrrigationZone) TableName() string {
	return "irrigation_zones"
}
