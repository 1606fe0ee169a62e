package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gatewarden/gatewarden/internal/audit"
	"github.com/gatewarden/gatewarden/internal/challenge"
	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/internal/store"
)

// RouteHandler exposes CRUD for proxy routes and their auth steps.
type RouteHandler struct {
	routes *store.RouteStore
	audit  *audit.Logger
}

func NewRouteHandler(routes *store.RouteStore, auditLog *audit.Logger) *RouteHandler {
	return &RouteHandler{routes: routes, audit: auditLog}
}

// List returns all routes with steps and conditions preloaded.
func (h *RouteHandler) List(c *gin.Context) {
	routes, err := h.routes.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list routes"})
		return
	}
	c.JSON(http.StatusOK, routes)
}

// Create validates and persists a new route.
func (h *RouteHandler) Create(c *gin.Context) {
	var route models.ProxyRoute
	if err := c.ShouldBindJSON(&route); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid route payload"})
		return
	}
	if err := validateRoute(&route); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.routes.Create(&route); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create route"})
		return
	}

	h.audit.Record(models.ActorOperator, "route.created", audit.Entry{ProxyRouteID: &route.ID, Detail: route.Subdomain})
	c.JSON(http.StatusCreated, route)
}

// Update replaces a route's fields, steps, and conditions.
func (h *RouteHandler) Update(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid route id"})
		return
	}

	var route models.ProxyRoute
	if err := c.ShouldBindJSON(&route); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid route payload"})
		return
	}
	if err := validateRoute(&route); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	route.ID = id

	if err := h.routes.Update(&route); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update route"})
		return
	}

	h.audit.Record(models.ActorOperator, "route.updated", audit.Entry{ProxyRouteID: &route.ID, Detail: route.Subdomain})
	c.JSON(http.StatusOK, route)
}

// Delete removes a route and its steps.
func (h *RouteHandler) Delete(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid route id"})
		return
	}

	if err := h.routes.Delete(id); err != nil {
		if errors.Is(err, store.ErrRouteNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete route"})
		return
	}

	h.audit.Record(models.ActorOperator, "route.deleted", audit.Entry{ProxyRouteID: &id})
	c.Status(http.StatusNoContent)
}

// RegenerateSolvedID rotates a step's solved token, forcing every
// client to re-authenticate that step.
func (h *RouteHandler) RegenerateSolvedID(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid step id"})
		return
	}

	newID, err := h.routes.RegenerateSolvedID(id)
	if err != nil {
		if errors.Is(err, store.ErrStepNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "step not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to regenerate solved id"})
		return
	}

	h.audit.Record(models.ActorOperator, "step.solved_id_regenerated", audit.Entry{AuthStepID: &id})
	c.JSON(http.StatusOK, gin.H{"solved_id": newID})
}

// ChallengeTypes lists the registered challenge type identifiers.
func (h *RouteHandler) ChallengeTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"types": challenge.Types()})
}

func validateRoute(route *models.ProxyRoute) error {
	if route.Subdomain == "" {
		return errors.New("subdomain is required")
	}
	if route.Destination == "" {
		return errors.New("destination is required")
	}
	for i := range route.AuthSteps {
		step := &route.AuthSteps[i]
		if _, err := challenge.New(step.ChallengeTypeID, step.Config); err != nil {
			return err
		}
	}
	return nil
}

func paramID(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}
