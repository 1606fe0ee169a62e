package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Operator is an administrative account. It backs the admin API login
// and the AdminLogin challenge type.
type Operator struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UUID      string    `gorm:"uniqueIndex;not null" json:"uuid"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Enabled  bool   `gorm:"default:true" json:"enabled"`

	PasswordHash string `gorm:"not null" json:"-"` // Never expose in JSON

	// TOTP second factor
	TOTPEnabled bool   `json:"totp_enabled"`
	TOTPSecret  string `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// BeforeCreate generates UUID for new operators
func (o *Operator) BeforeCreate(tx *gorm.DB) error {
	if o.UUID == "" {
		o.UUID = uuid.New().String()
	}
	return nil
}

// SetPassword hashes and sets the operator's password
func (o *Operator) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	o.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a password against the stored hash
func (o *Operator) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(o.PasswordHash), []byte(password))
	return err == nil
}
