package audit

import (
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/logger"
	"github.com/gatewarden/gatewarden/internal/models"
)

// Logger appends audit entries. Failures are logged and swallowed; an
// audit write must never fail the request that caused it.
type Logger struct {
	db *gorm.DB
}

func NewLogger(db *gorm.DB) *Logger {
	return &Logger{db: db}
}

// Entry collects the optional related ids of an audited action.
type Entry struct {
	ClientIdentityID string
	ProxyRouteID     *uint
	AuthStepID       *uint
	Detail           string
}

// Record persists one audit row.
func (l *Logger) Record(actor models.AuditActor, action string, e Entry) {
	row := models.AuditEntry{
		Actor:            actor,
		Action:           action,
		ClientIdentityID: e.ClientIdentityID,
		ProxyRouteID:     e.ProxyRouteID,
		AuthStepID:       e.AuthStepID,
		Detail:           e.Detail,
	}
	if err := l.db.Create(&row).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"action": action,
			"actor":  actor,
		}).WithError(err).Warn("failed to write audit entry")
	}
}

// List returns recent entries, newest first, for the admin API.
func (l *Logger) List(limit int) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	q := l.db.Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
