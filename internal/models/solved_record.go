package models

import (
	"time"
)

// SolvedRecord is evidence that a client completed a specific AuthStep's
// challenge. A record only counts while its SolvedID still equals the
// step's current SolvedID and the step's TTL (if any) has not elapsed.
type SolvedRecord struct {
	ID uint `json:"id" gorm:"primaryKey"`

	ClientIdentityID string `json:"client_identity_id" gorm:"uniqueIndex:idx_solved_client_step"`
	AuthStepID       uint   `json:"auth_step_id" gorm:"uniqueIndex:idx_solved_client_step"`

	SolvedID string    `json:"solved_id"`
	SolvedAt time.Time `json:"solved_at"`
}

// ValidFor reports whether the record still proves a solve for the
// step's current challenge at the given instant.
func (r *SolvedRecord) ValidFor(step *AuthStep, now time.Time) bool {
	if r.SolvedID != step.SolvedID {
		return false
	}
	if ttl, ok := step.SolveTTL(); ok && now.Sub(r.SolvedAt) >= ttl {
		return false
	}
	return true
}
