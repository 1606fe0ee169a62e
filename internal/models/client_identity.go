package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientIdentity is an anonymous per-browser session correlated by the
// gateway session cookie. Records are never deleted by the request
// pipeline; retention is a background job.
type ClientIdentity struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`

	Blocked        bool   `json:"blocked"`
	BlockedMessage string `json:"blocked_message"`

	// LastAttemptedAccessAt tracks any request through the pipeline;
	// LastAccessedAt only successful forwards. Both are write-throttled.
	LastAttemptedAccessAt time.Time  `json:"last_attempted_access_at"`
	LastAccessedAt        *time.Time `json:"last_accessed_at,omitempty"`
}

// BeforeCreate assigns a random identity GUID when none was minted yet
func (c *ClientIdentity) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
