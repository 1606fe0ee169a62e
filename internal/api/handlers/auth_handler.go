package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gatewarden/gatewarden/internal/audit"
	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/internal/store"
)

const tokenLifetime = 12 * time.Hour

// AuthHandler logs operators into the admin API.
type AuthHandler struct {
	operators *store.OperatorStore
	verifier  auth.Verifier
	audit     *audit.Logger
	secret    []byte
}

func NewAuthHandler(operators *store.OperatorStore, verifier auth.Verifier, auditLog *audit.Logger, secret string) *AuthHandler {
	return &AuthHandler{operators: operators, verifier: verifier, audit: auditLog, secret: []byte(secret)}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	TOTP     string `json:"totp"`
}

// Login verifies operator credentials and issues a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	op, err := h.operators.FindByUsername(req.Username)
	if err != nil || !h.verifier.VerifyPassword(op.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if op.TOTPEnabled && !h.verifier.VerifyTOTP(op.TOTPSecret, req.TOTP) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid one-time code"})
		return
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   op.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	last := now
	op.LastLoginAt = &last
	_ = h.operators.Save(op)

	h.audit.Record(models.ActorOperator, "operator.login", audit.Entry{Detail: op.Username})
	c.JSON(http.StatusOK, gin.H{"token": token})
}
