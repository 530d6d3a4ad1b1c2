package models

import "github.com/teamsync/teamsync/internal/membership"

// Member is one seat on a team roster.
type Member struct {
	BaseModel

	TeamID       string          `gorm:"type:uuid;not null;index;uniqueIndex:idx_members_team_email" json:"team_id"`
	Name         string          `gorm:"not null" json:"name"`
	Email        string          `gorm:"not null;uniqueIndex:idx_members_team_email" json:"email"`
	PasswordHash string          `json:"-"`
	Role         membership.Role `gorm:"type:varchar(16);not null;index" json:"role"`
	InviteID     *string         `gorm:"type:uuid;index" json:"invite_id,omitempty"`
}
