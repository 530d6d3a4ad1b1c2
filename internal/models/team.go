package models

import "github.com/teamsync/teamsync/internal/membership"

const (
	TeamStatusActive   = "active"
	TeamStatusInactive = "inactive"
)

// Team is the unit every roster, invite and chat channel belongs to.
type Team struct {
	BaseModel

	Name    string          `gorm:"not null" json:"name"`
	Sport   string          `json:"sport"`
	Tier    membership.Tier `gorm:"type:varchar(32);not null;default:'free'" json:"tier"`
	OwnerID string          `gorm:"type:varchar(36);index" json:"owner_id"`
	Status  string          `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
}
