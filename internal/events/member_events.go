package events

import (
	"time"

	"github.com/teamsync/teamsync/internal/membership"
)

const (
	MemberJoinedEvent  = "member.joined"
	MemberRemovedEvent = "member.removed"
)

// MemberJoined is raised after a redemption commits.
type MemberJoined struct {
	TeamID   string          `json:"team_id"`
	MemberID string          `json:"member_id"`
	Name     string          `json:"name"`
	Role     membership.Role `json:"role"`
	InviteID string          `json:"invite_id,omitempty"`
	At       time.Time       `json:"at"`
}

func (MemberJoined) EventName() string { return MemberJoinedEvent }

// MemberRemoved is raised after a member is deleted from a roster.
// Each subscriber decides what happens to the member's records.
type MemberRemoved struct {
	TeamID    string          `json:"team_id"`
	MemberID  string          `json:"member_id"`
	Role      membership.Role `json:"role"`
	RemovedBy string          `json:"removed_by"`
	At        time.Time       `json:"at"`
}

func (MemberRemoved) EventName() string { return MemberRemovedEvent }
