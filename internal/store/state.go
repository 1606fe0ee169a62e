package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/models"
)

// StateStore is the per-(client, step) key/value store challenge types
// keep their ephemeral protocol state in.
type StateStore struct {
	db *gorm.DB
}

func NewStateStore(db *gorm.DB) *StateStore {
	return &StateStore{db: db}
}

// Get returns the stored value and whether it was found.
func (s *StateStore) Get(clientID string, stepID uint, key string) (string, bool, error) {
	var entry models.ChallengeStateEntry
	err := s.db.Where("client_identity_id = ? AND auth_step_id = ? AND key = ?", clientID, stepID, key).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

// Set writes a value, last-write-wins per key.
func (s *StateStore) Set(clientID string, stepID uint, key, value string) error {
	var entry models.ChallengeStateEntry
	err := s.db.Where("client_identity_id = ? AND auth_step_id = ? AND key = ?", clientID, stepID, key).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry = models.ChallengeStateEntry{
			ClientIdentityID: clientID,
			AuthStepID:       stepID,
			Key:              key,
			Value:            value,
		}
		return s.db.Create(&entry).Error
	}
	if err != nil {
		return err
	}
	entry.Value = value
	return s.db.Save(&entry).Error
}

// FindByValue reverse-looks-up the (client, step) scope holding the
// given value under key. Used to resolve approval tokens back to the
// step they were issued for.
func (s *StateStore) FindByValue(key, value string) (clientID string, stepID uint, found bool, err error) {
	var entry models.ChallengeStateEntry
	e := s.db.Where("key = ? AND value = ?", key, value).First(&entry).Error
	if errors.Is(e, gorm.ErrRecordNotFound) {
		return "", 0, false, nil
	}
	if e != nil {
		return "", 0, false, e
	}
	return entry.ClientIdentityID, entry.AuthStepID, true, nil
}

// TouchIfOlder writes now (RFC3339) under key only if the stored
// timestamp is absent, unparseable, or older than the cooldown. The
// check-then-act runs inside one transaction so concurrent cooldown
// gated actions cannot both pass.
func (s *StateStore) TouchIfOlder(clientID string, stepID uint, key string, now time.Time, cooldown time.Duration) (bool, error) {
	touched := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var entry models.ChallengeStateEntry
		err := tx.Where("client_identity_id = ? AND auth_step_id = ? AND key = ?", clientID, stepID, key).
			First(&entry).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			entry = models.ChallengeStateEntry{
				ClientIdentityID: clientID,
				AuthStepID:       stepID,
				Key:              key,
				Value:            now.UTC().Format(time.RFC3339),
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
			touched = true
			return nil
		case err != nil:
			return err
		}

		if last, parseErr := time.Parse(time.RFC3339, entry.Value); parseErr == nil {
			if now.Sub(last) < cooldown {
				return nil
			}
		}
		entry.Value = now.UTC().Format(time.RFC3339)
		if err := tx.Save(&entry).Error; err != nil {
			return err
		}
		touched = true
		return nil
	})
	return touched, err
}
