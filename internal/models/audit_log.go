package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records a single security-relevant event (login, lockout, unlock,
// two-factor enrollment and verification).
type AuditLog struct {
	ID      string  `gorm:"primaryKey;type:uuid" json:"id"`
	AdminID *string `gorm:"type:uuid;index" json:"admin_id,omitempty"`
	Email   string  `gorm:"index" json:"email,omitempty"`

	Action string `gorm:"not null;index" json:"action"`
	Result string `gorm:"not null" json:"result"`

	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (l *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
