package audit

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	applog "aromastock/internal/log"
	"aromastock/models"
)

// Recorder writes activity entries to the database. Every write is
// best-effort: failures are logged and swallowed so an audit problem can
// never block or roll back the operation being recorded.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder returns a Recorder backed by the given database handle.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// LogEvent stores one activity entry with an optional structured payload.
func (r *Recorder) LogEvent(ctx context.Context, ownerID uint, title, message, severity string, payload any) {
	if r == nil || r.db == nil {
		return
	}
	if severity == "" {
		severity = models.SeverityInfo
	}

	entry := models.ActivityLog{
		OwnerID:  ownerID,
		Title:    title,
		Message:  message,
		Severity: severity,
	}
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			applog.Error(ctx, "failed to encode activity payload", "error", err, "title", title)
		} else {
			entry.Payload = string(encoded)
		}
	}

	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		applog.Error(ctx, "failed to record activity entry", "error", err, "title", title)
	}
}
