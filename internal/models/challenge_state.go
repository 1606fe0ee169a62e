package models

import (
	"time"
)

// ChallengeStateEntry is ephemeral per-(client, step) protocol state
// written by challenge-type logic (OTP codes, send timestamps, flags).
// Writes are last-write-wins per key.
type ChallengeStateEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UpdatedAt time.Time `json:"updated_at"`

	ClientIdentityID string `json:"client_identity_id" gorm:"uniqueIndex:idx_state_scope"`
	AuthStepID       uint   `json:"auth_step_id" gorm:"uniqueIndex:idx_state_scope"`
	Key              string `json:"key" gorm:"uniqueIndex:idx_state_scope"`

	Value string `json:"value" gorm:"type:text"`
}
