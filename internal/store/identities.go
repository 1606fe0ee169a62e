package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/models"
)

var ErrIdentityNotFound = errors.New("client identity not found")

// IdentityStore persists anonymous client identities.
type IdentityStore struct {
	db *gorm.DB
}

func NewIdentityStore(db *gorm.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

// Get loads an identity by its GUID.
func (s *IdentityStore) Get(id string) (*models.ClientIdentity, error) {
	var identity models.ClientIdentity
	if err := s.db.First(&identity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return &identity, nil
}

// Create persists a freshly minted identity. Near-simultaneous creation
// of the same id (two uncookied tabs racing) collapses into the existing
// row instead of erroring.
func (s *IdentityStore) Create(identity *models.ClientIdentity) error {
	err := s.db.Create(identity).Error
	if err == nil {
		return nil
	}
	if existing, getErr := s.Get(identity.ID); getErr == nil {
		*identity = *existing
		return nil
	}
	return err
}

// TouchAttempted refreshes IP/user-agent and the attempted-access
// timestamp. Callers throttle; the store just writes.
func (s *IdentityStore) TouchAttempted(id, ip, userAgent string, now time.Time) error {
	return s.db.Model(&models.ClientIdentity{}).Where("id = ?", id).Updates(map[string]interface{}{
		"ip":                       ip,
		"user_agent":               userAgent,
		"last_attempted_access_at": now,
	}).Error
}

// TouchAccessed records a successful forward.
func (s *IdentityStore) TouchAccessed(id string, now time.Time) error {
	return s.db.Model(&models.ClientIdentity{}).Where("id = ?", id).Update("last_accessed_at", now).Error
}

// SetBlocked toggles the identity's block flag and message.
func (s *IdentityStore) SetBlocked(id string, blocked bool, message string) error {
	result := s.db.Model(&models.ClientIdentity{}).Where("id = ?", id).Updates(map[string]interface{}{
		"blocked":         blocked,
		"blocked_message": message,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

// List returns identities ordered by most recent attempt, for the admin API.
func (s *IdentityStore) List(limit int) ([]models.ClientIdentity, error) {
	var identities []models.ClientIdentity
	q := s.db.Order("last_attempted_access_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&identities).Error; err != nil {
		return nil, err
	}
	return identities, nil
}

// DeleteIdleBefore removes identities whose last attempt predates the
// cutoff, together with their solves and challenge state. Used by the
// retention job, never by the request path.
func (s *IdentityStore) DeleteIdleBefore(cutoff time.Time) (int64, error) {
	var stale []models.ClientIdentity
	if err := s.db.Where("last_attempted_access_at < ?", cutoff).Find(&stale).Error; err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(stale))
	for _, identity := range stale {
		ids = append(ids, identity.ID)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_identity_id IN ?", ids).Delete(&models.SolvedRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("client_identity_id IN ?", ids).Delete(&models.ChallengeStateEntry{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.ClientIdentity{}).Error
	})
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}
