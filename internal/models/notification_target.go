package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationTrigger identifies the event kind a dispatch belongs to.
type NotificationTrigger string

const (
	TriggerClientCompletedChallenge NotificationTrigger = "client_completed_challenge"
	TriggerClientBlocked            NotificationTrigger = "client_blocked"
	TriggerOTPSend                  NotificationTrigger = "otp_send"
	TriggerApprovalRequest          NotificationTrigger = "approval_request"
)

// NotificationTarget is one delivery destination for gateway events.
// URL is either a shoutrrr service URL (discord://..., telegram://...)
// or a plain http(s) webhook hit with Method.
type NotificationTarget struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name    string `json:"name"`
	Enabled bool   `json:"enabled" gorm:"default:true"`

	URL    string `json:"url"`
	Method string `json:"method"` // only for http(s) webhooks, default POST

	// Triggers is a comma-separated list of trigger kinds; empty means all.
	Triggers string `json:"triggers"`

	// CooldownSeconds suppresses repeat dispatches of the same trigger
	// to this target. Zero disables the cooldown.
	CooldownSeconds int `json:"cooldown_seconds"`
}

// BeforeCreate generates UUID for new notification targets
func (t *NotificationTarget) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == "" {
		t.UUID = uuid.New().String()
	}
	return nil
}

// WantsTrigger reports whether the target subscribes to the trigger kind.
func (t *NotificationTarget) WantsTrigger(kind NotificationTrigger) bool {
	if strings.TrimSpace(t.Triggers) == "" {
		return true
	}
	for _, part := range strings.Split(t.Triggers, ",") {
		if strings.TrimSpace(part) == string(kind) {
			return true
		}
	}
	return false
}
