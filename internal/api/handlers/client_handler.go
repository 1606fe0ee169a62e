package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gatewarden/gatewarden/internal/audit"
	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/internal/store"
)

// ClientHandler manages anonymous client identities.
type ClientHandler struct {
	identities *store.IdentityStore
	audit      *audit.Logger
}

func NewClientHandler(identities *store.IdentityStore, auditLog *audit.Logger) *ClientHandler {
	return &ClientHandler{identities: identities, audit: auditLog}
}

// List returns recent client identities.
func (h *ClientHandler) List(c *gin.Context) {
	clients, err := h.identities.List(200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list clients"})
		return
	}
	c.JSON(http.StatusOK, clients)
}

type blockRequest struct {
	Message string `json:"message"`
}

// Block flags a client; every subsequent request renders the block page.
func (h *ClientHandler) Block(c *gin.Context) {
	id := c.Param("id")

	var req blockRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.identities.SetBlocked(id, true, req.Message); err != nil {
		if errors.Is(err, store.ErrIdentityNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to block client"})
		return
	}

	h.audit.Record(models.ActorOperator, "client.blocked", audit.Entry{ClientIdentityID: id, Detail: req.Message})
	c.Status(http.StatusNoContent)
}

// Unblock clears a client's block flag.
func (h *ClientHandler) Unblock(c *gin.Context) {
	id := c.Param("id")

	if err := h.identities.SetBlocked(id, false, ""); err != nil {
		if errors.Is(err, store.ErrIdentityNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unblock client"})
		return
	}

	h.audit.Record(models.ActorOperator, "client.unblocked", audit.Entry{ClientIdentityID: id})
	c.Status(http.StatusNoContent)
}
