package models

import (
	"time"
)

// AuditActor classifies who caused an audited action.
type AuditActor string

const (
	ActorClient   AuditActor = "client"
	ActorOperator AuditActor = "operator"
	ActorSystem   AuditActor = "system"
)

// AuditEntry is an append-only record of security-relevant actions.
type AuditEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Actor  AuditActor `json:"actor"`
	Action string     `json:"action" gorm:"index"`

	ClientIdentityID string `json:"client_identity_id,omitempty" gorm:"index"`
	ProxyRouteID     *uint  `json:"proxy_route_id,omitempty"`
	AuthStepID       *uint  `json:"auth_step_id,omitempty"`

	Detail string `json:"detail,omitempty"`
}
