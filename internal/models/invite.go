package models

import (
	"time"

	"github.com/teamsync/teamsync/internal/membership"
)

// InviteState classifies an invite at a point in time.
type InviteState string

const (
	InviteStateRedeemable InviteState = "redeemable"
	InviteStateExpired    InviteState = "expired"
	InviteStateInactive   InviteState = "inactive"
	InviteStateExhausted  InviteState = "exhausted"
)

// Invite is a shareable code granting a role on a team.
// MaxUses of zero means the code can be redeemed any number of times.
type Invite struct {
	BaseModel

	TeamID    string          `gorm:"type:uuid;not null;index" json:"team_id"`
	Code      string          `gorm:"size:16;not null;uniqueIndex" json:"code"`
	Role      membership.Role `gorm:"type:varchar(16);not null" json:"role"`
	CreatedBy string          `gorm:"type:varchar(36);index" json:"created_by"`
	ExpiresAt time.Time       `gorm:"not null;index" json:"expires_at"`
	Uses      int             `gorm:"not null;default:0" json:"uses"`
	MaxUses   int             `gorm:"not null;default:0" json:"max_uses"`
	Active    bool            `gorm:"not null;default:true;index" json:"active"`
}

// StateAt reports how the invite would behave if redeemed at now.
// Expiry wins over deactivation, since lazily expired invites are also
// flipped inactive.
func (i *Invite) StateAt(now time.Time) InviteState {
	switch {
	case !now.Before(i.ExpiresAt):
		return InviteStateExpired
	case !i.Active:
		return InviteStateInactive
	case i.MaxUses > 0 && i.Uses >= i.MaxUses:
		return InviteStateExhausted
	default:
		return InviteStateRedeemable
	}
}

// RedeemableAt is shorthand for StateAt(now) == InviteStateRedeemable.
func (i *Invite) RedeemableAt(now time.Time) bool {
	return i.StateAt(now) == InviteStateRedeemable
}
