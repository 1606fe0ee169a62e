package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/models"
)

// SolvedStore is the ledger of completed challenges.
type SolvedStore struct {
	db *gorm.DB
}

func NewSolvedStore(db *gorm.DB) *SolvedStore {
	return &SolvedStore{db: db}
}

// SetSolved records a solve against the step's current solved token.
// Idempotent: an existing record is refreshed in place. Returns whether
// a new record was created, so callers can emit first-solve side effects
// only once.
func (s *SolvedStore) SetSolved(clientID string, step *models.AuthStep, now time.Time) (created bool, err error) {
	var record models.SolvedRecord
	err = s.db.Where("client_identity_id = ? AND auth_step_id = ?", clientID, step.ID).First(&record).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		record = models.SolvedRecord{
			ClientIdentityID: clientID,
			AuthStepID:       step.ID,
			SolvedID:         step.SolvedID,
			SolvedAt:         now,
		}
		if err := s.db.Create(&record).Error; err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, err
	default:
		record.SolvedID = step.SolvedID
		record.SolvedAt = now
		return false, s.db.Save(&record).Error
	}
}

// SetUnsolved deletes the solve record if present and reports whether
// one was removed.
func (s *SolvedStore) SetUnsolved(clientID string, stepID uint) (bool, error) {
	result := s.db.Where("client_identity_id = ? AND auth_step_id = ?", clientID, stepID).
		Delete(&models.SolvedRecord{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IsSolved reports whether the client holds a solve that is still valid
// against the step's current solved token and TTL.
func (s *SolvedStore) IsSolved(clientID string, step *models.AuthStep, now time.Time) (bool, error) {
	var record models.SolvedRecord
	err := s.db.Where("client_identity_id = ? AND auth_step_id = ?", clientID, step.ID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return record.ValidFor(step, now), nil
}
