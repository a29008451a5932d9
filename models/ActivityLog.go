package models

import (
	"gorm.io/gorm"
)

// Activity severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// ActivityLog is a best-effort audit trail entry: formula edits and stock
// movements land here. Writes are fire-and-forget and never block the
// operation they describe.
type ActivityLog struct {
	gorm.Model
	OwnerID  uint   `gorm:"not null;index" json:"owner_id"`
	Title    string `gorm:"not null" json:"title"`
	Message  string `gorm:"type:text" json:"message"`
	Severity string `gorm:"type:varchar(16);default:info" json:"severity"`
	Payload  string `gorm:"type:text" json:"payload"` // structured JSON detail
}
