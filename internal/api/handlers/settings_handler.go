package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gatewarden/gatewarden/internal/audit"
	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/internal/store"
)

// SettingsHandler exposes runtime toggles, notably the forwarding kill
// switch.
type SettingsHandler struct {
	settings *store.SettingsStore
	audit    *audit.Logger
}

func NewSettingsHandler(settings *store.SettingsStore, auditLog *audit.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, audit: auditLog}
}

// GetForwarding reports the kill-switch state.
func (h *SettingsHandler) GetForwarding(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": h.settings.ForwardingEnabled()})
}

type forwardingRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetForwarding flips the kill switch.
func (h *SettingsHandler) SetForwarding(c *gin.Context) {
	var req forwardingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled flag is required"})
		return
	}

	if err := h.settings.SetBool(models.SettingForwardingEnabled, *req.Enabled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update setting"})
		return
	}

	action := "forwarding.disabled"
	if *req.Enabled {
		action = "forwarding.enabled"
	}
	h.audit.Record(models.ActorOperator, action, audit.Entry{})
	c.JSON(http.StatusOK, gin.H{"enabled": *req.Enabled})
}

// AuditHandler lists recent audit entries.
type AuditHandler struct {
	audit *audit.Logger
}

func NewAuditHandler(auditLog *audit.Logger) *AuditHandler {
	return &AuditHandler{audit: auditLog}
}

// List returns the newest audit entries.
func (h *AuditHandler) List(c *gin.Context) {
	entries, err := h.audit.List(200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit entries"})
		return
	}
	c.JSON(http.StatusOK, entries)
}
