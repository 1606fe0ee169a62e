package auth

import (
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// Verifier checks credentials for the Login and AdminLogin challenge
// types and the admin API.
type Verifier interface {
	VerifyPassword(hash, password string) bool
	VerifyTOTP(secret, code string) bool
}

// NewVerifier returns the default bcrypt+TOTP verifier.
func NewVerifier() Verifier {
	return verifier{}
}

type verifier struct{}

func (verifier) VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (verifier) VerifyTOTP(secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}
	return totp.Validate(code, secret)
}
