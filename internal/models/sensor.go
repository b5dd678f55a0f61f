package models

import "time"

// SensorType identifies what a field sensor measures.
type SensorType string

const (
	SensorTemperature SensorType = "temperature"
	SensorHumidity    SensorType = "humidity"
	// SensorGas measures gas concentration in ppm ("daz" on the dashboard).
	SensorGas  SensorType = "daz"
	SensorSoil SensorType = "soil"
)

// SensorTypes lists every known sensor type in display order.
var SensorTypes = []SensorType{SensorTemperature, SensorHumidity, SensorGas, SensorSoil}

// Valid reports whether t is a known sensor type.
func (t SensorType) Valid() bool {
	for _, known := range SensorTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Unit returns the display unit for the sensor type.
func (t SensorType) Unit() string {
	switch t {
	case SensorTemperature:
		return "°C"
	case SensorGas:
		return "ppm"
	default:
		return "%"
	}
}

// SensorStatus grades a reading against its acceptable band.
type SensorStatus string

const (
	StatusNormal   SensorStatus = "normal"
	StatusWarning  SensorStatus = "warning"
	StatusCritical SensorStatus = "critical"
)

// SensorData is the latest snapshot of a single field sensor.
type SensorData struct {
	ID        string       `json:"id" gorm:"primaryKey;size:64"`
	Type      SensorType   `json:"type" gorm:"size:32;index"`
	Value     float64      `json:"value"`
	Unit      string       `json:"unit" gorm:"size:16"`
	Timestamp time.Time    `json:"timestamp"`
	Location  string       `json:"location" gorm:"size:128"`
	Status    SensorStatus `json:"status" gorm:"size:16"`
}

// TableName overrides the default table name.
func (SensorData) TableName() string {
	return "sensors"
}

// HistoricalData is one point of a sensor type's time series.
type HistoricalData struct {
	ID         uint       `json:"-" gorm:"primaryKey"`
	SensorType SensorType `json:"-" gorm:"size:32;index:idx_history_type_ts"`
	Timestamp  time.Time  `json:"timestamp" gorm:"index:idx_history_type_ts"`
	Value      float64    `json:"value"`
}

// TableName overrides the default table name.
func (HistoricalData) TableName() string {
	return "sensor_history"
}

// SensorSummary aggregates the current readings of one sensor type.
type SensorSummary struct {
	Type    SensorType `json:"type"`
	Unit    string     `json:"unit"`
	Count   int        `json:"count"`
	Average float64    `json:"average"`
	Min     float64    `json:"min"`
	Max     float64    `json:"max"`
}
