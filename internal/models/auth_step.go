package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthStep is one authentication requirement within a route. Steps are
// evaluated in ascending Order; a client must solve every applicable
// step before the gateway forwards traffic.
type AuthStep struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProxyRouteID uint `json:"proxy_route_id" gorm:"index"`
	Order        int  `json:"order" gorm:"column:step_order"`

	// ChallengeTypeID selects the pluggable challenge implementation.
	ChallengeTypeID string `json:"challenge_type_id"`
	// Config is the challenge-type-specific JSON blob.
	Config string `json:"config" gorm:"type:text"`

	// SolvedID is an opaque token; regenerating it invalidates every
	// existing solve for this step without deleting history.
	SolvedID string `json:"solved_id"`

	// SolveTTLSeconds bounds how long a solve stays valid. Nil means no TTL.
	SolveTTLSeconds *int `json:"solve_ttl_seconds,omitempty"`

	Conditions []Condition `json:"conditions,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// BeforeCreate generates UUID and the initial solved token for new steps
func (s *AuthStep) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == "" {
		s.UUID = uuid.New().String()
	}
	if s.SolvedID == "" {
		s.SolvedID = uuid.New().String()
	}
	return nil
}

// SolveTTL returns the configured solve TTL, if any.
func (s *AuthStep) SolveTTL() (time.Duration, bool) {
	if s.SolveTTLSeconds == nil || *s.SolveTTLSeconds <= 0 {
		return 0, false
	}
	return time.Duration(*s.SolveTTLSeconds) * time.Second, true
}
