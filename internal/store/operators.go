package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/models"
)

var ErrOperatorNotFound = errors.New("operator not found")

// OperatorStore persists administrative accounts.
type OperatorStore struct {
	db *gorm.DB
}

func NewOperatorStore(db *gorm.DB) *OperatorStore {
	return &OperatorStore{db: db}
}

// FindByUsername loads an enabled operator by username.
func (s *OperatorStore) FindByUsername(username string) (*models.Operator, error) {
	var op models.Operator
	err := s.db.Where("username = ? AND enabled = ?", username, true).First(&op).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOperatorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// Create persists a new operator.
func (s *OperatorStore) Create(op *models.Operator) error {
	return s.db.Create(op).Error
}

// Save persists operator changes.
func (s *OperatorStore) Save(op *models.Operator) error {
	return s.db.Save(op).Error
}
