package models

import "time"

// RateCounter is one fixed-window request counter shared by every server
// instance. Bucket combines the limiter scope, client address and route.
type RateCounter struct {
	Bucket     string    `gorm:"primaryKey;size:255" json:"bucket"`
	Count      int64     `gorm:"not null;default:0" json:"count"`
	WindowEnds time.Time `gorm:"not null;index" json:"window_ends"`
	UpdatedAt  time.Time `json:"updated_at"`
}
