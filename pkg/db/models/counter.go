package models

import "time"

// Counter backs monotonic sequences keyed by name, one row per scope
// (for order numbers the scope is the calendar day).
type Counter struct {
	Name      string    `gorm:"column:name;primaryKey"`
	Value     int64     `gorm:"column:value;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
