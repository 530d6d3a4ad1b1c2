package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is one entry of a team's activity trail. Entries written outside
// any team, such as failed joins on unknown codes, carry a nil TeamID.
type AuditLog struct {
	ID        string         `gorm:"primaryKey;type:uuid" json:"id"`
	TeamID    *string        `gorm:"type:uuid;index:idx_audit_team_action,priority:1" json:"team_id"`
	ActorID   *string        `gorm:"type:uuid;index" json:"actor_id"`
	Action    string         `gorm:"size:64;not null;index:idx_audit_team_action,priority:2" json:"action"`
	Resource  string         `gorm:"size:64" json:"resource"`
	Result    string         `gorm:"size:16;not null" json:"result"`
	IPAddress string         `gorm:"size:64" json:"-"`
	UserAgent string         `gorm:"size:255" json:"-"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns a UUIDv7 so that id order is write order, which the
// activity feed pages on.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID != "" {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	a.ID = id.String()
	return nil
}
