package store

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/models"
)

var (
	ErrRouteNotFound = errors.New("proxy route not found")
	ErrStepNotFound  = errors.New("auth step not found")
)

// EntityKind names a cached entity class for explicit invalidation.
type EntityKind string

const (
	KindRoute     EntityKind = "route"
	KindStep      EntityKind = "step"
	KindCondition EntityKind = "condition"
)

// RouteStore loads proxy routes with their steps and conditions. Lookups
// are served from an in-process cache that admin writes invalidate by
// entity kind; the request path never queries per-request.
type RouteStore struct {
	db *gorm.DB

	mu     sync.RWMutex
	cache  []models.ProxyRoute
	loaded bool
}

func NewRouteStore(db *gorm.DB) *RouteStore {
	return &RouteStore{db: db}
}

// FindByHost resolves a route by exact subdomain and listener port. An
// exact port match wins over a port-wildcard route.
func (s *RouteStore) FindByHost(subdomain string, port int) (*models.ProxyRoute, error) {
	routes, err := s.all()
	if err != nil {
		return nil, err
	}

	var wildcard *models.ProxyRoute
	for i := range routes {
		r := &routes[i]
		if !r.Enabled || r.Subdomain != subdomain || !r.MatchesPort(port) {
			continue
		}
		if r.Port != nil {
			return r, nil
		}
		if wildcard == nil {
			wildcard = r
		}
	}
	if wildcard != nil {
		return wildcard, nil
	}
	return nil, ErrRouteNotFound
}

func (s *RouteStore) all() ([]models.ProxyRoute, error) {
	s.mu.RLock()
	if s.loaded {
		cached := s.cache
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	var routes []models.ProxyRoute
	err := s.db.
		Preload("AuthSteps", func(db *gorm.DB) *gorm.DB { return db.Order("step_order asc") }).
		Preload("AuthSteps.Conditions").
		Find(&routes).Error
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache = routes
	s.loaded = true
	s.mu.Unlock()

	return routes, nil
}

// Invalidate drops cached state for the given entity kind. Routes,
// steps, and conditions all live in the same preloaded snapshot, so any
// of the three clears it.
func (s *RouteStore) Invalidate(kind EntityKind) {
	switch kind {
	case KindRoute, KindStep, KindCondition:
		s.mu.Lock()
		s.cache = nil
		s.loaded = false
		s.mu.Unlock()
	}
}

// List returns all routes, steps preloaded, for the admin API.
func (s *RouteStore) List() ([]models.ProxyRoute, error) {
	return s.all()
}

// GetStep loads a single auth step with its conditions.
func (s *RouteStore) GetStep(stepID uint) (*models.AuthStep, error) {
	var step models.AuthStep
	if err := s.db.Preload("Conditions").First(&step, stepID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStepNotFound
		}
		return nil, err
	}
	return &step, nil
}

// Create persists a new route and invalidates the lookup cache.
func (s *RouteStore) Create(route *models.ProxyRoute) error {
	if err := s.db.Create(route).Error; err != nil {
		return err
	}
	s.Invalidate(KindRoute)
	return nil
}

// Update saves route changes and invalidates the lookup cache.
func (s *RouteStore) Update(route *models.ProxyRoute) error {
	if err := s.db.Save(route).Error; err != nil {
		return err
	}
	s.Invalidate(KindRoute)
	return nil
}

// Delete removes a route together with its steps and conditions.
func (s *RouteStore) Delete(id uint) error {
	result := s.db.Select("AuthSteps", "AuthSteps.Conditions").Delete(&models.ProxyRoute{ID: id})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRouteNotFound
	}
	s.Invalidate(KindRoute)
	return nil
}

// RegenerateSolvedID rotates a step's solved token, atomically
// invalidating every existing solve for that step.
func (s *RouteStore) RegenerateSolvedID(stepID uint) (string, error) {
	newID := uuid.New().String()
	result := s.db.Model(&models.AuthStep{}).Where("id = ?", stepID).Update("solved_id", newID)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", ErrStepNotFound
	}
	s.Invalidate(KindStep)
	return newID, nil
}
