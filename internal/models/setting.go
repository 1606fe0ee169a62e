package models

import (
	"time"
)

// Setting keys read at request time.
const (
	SettingForwardingEnabled = "gateway.forwarding.enabled"
)

// Setting is a key/value row for runtime toggles.
type Setting struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Key       string    `json:"key" gorm:"uniqueIndex"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
