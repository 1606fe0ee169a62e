package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/models"
)

// SettingsStore reads and writes runtime toggle rows.
type SettingsStore struct {
	db *gorm.DB
}

func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// GetBool returns the stored boolean value, or fallback when the key is
// absent or unreadable.
func (s *SettingsStore) GetBool(key string, fallback bool) bool {
	var setting models.Setting
	if err := s.db.Where("key = ?", key).First(&setting).Error; err != nil {
		return fallback
	}
	return strings.EqualFold(setting.Value, "true")
}

// SetBool upserts a boolean toggle.
func (s *SettingsStore) SetBool(key string, value bool) error {
	val := "false"
	if value {
		val = "true"
	}

	var setting models.Setting
	err := s.db.Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(&models.Setting{Key: key, Value: val}).Error
	}
	if err != nil {
		return err
	}
	setting.Value = val
	return s.db.Save(&setting).Error
}

// ForwardingEnabled reports the global kill switch; forwarding defaults
// to on when the row is absent.
func (s *SettingsStore) ForwardingEnabled() bool {
	return s.GetBool(models.SettingForwardingEnabled, true)
}
