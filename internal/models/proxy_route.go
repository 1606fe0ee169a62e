package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProxyRoute maps a subdomain (and optionally a port) to a backend
// destination, gated by an ordered list of authentication steps.
type ProxyRoute struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Enabled     bool   `json:"enabled" gorm:"default:true"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// Routing key. A nil Port matches any gateway listener port.
	Subdomain string `json:"subdomain" gorm:"index"`
	Port      *int   `json:"port,omitempty"`

	// Destination URL the gateway forwards to, e.g. "http://10.0.0.5:3000".
	Destination string `json:"destination"`

	// Challenge page display flags.
	ShowCompletedChallenges           bool `json:"show_completed_challenges"`
	ShowChallengesWithUnmetConditions bool `json:"show_challenges_with_unmet_conditions"`

	AuthSteps []AuthStep `json:"auth_steps,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// BeforeCreate generates UUID for new proxy routes
func (r *ProxyRoute) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == "" {
		r.UUID = uuid.New().String()
	}
	return nil
}

// MatchesPort reports whether the route accepts traffic on the given
// listener port. Routes without an explicit port are port-wildcards.
func (r *ProxyRoute) MatchesPort(port int) bool {
	return r.Port == nil || *r.Port == port
}
