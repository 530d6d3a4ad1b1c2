package membership

import (
	"fmt"
	"strings"
)

// Tier is a team's subscription plan.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierClub       Tier = "club"
	TierEnterprise Tier = "enterprise"
)

// Limits are the roster ceilings granted by a tier.
type Limits struct {
	MaxPlayers int `json:"max_players"`
	MaxAdmins  int `json:"max_admins"`
}

// Enterprise admins are capped at 999 and compared like any other ceiling.
var tierLimits = map[Tier]Limits{
	TierFree:       {MaxPlayers: 20, MaxAdmins: 1},
	TierPro:        {MaxPlayers: 25, MaxAdmins: 3},
	TierClub:       {MaxPlayers: 60, MaxAdmins: 9},
	TierEnterprise: {MaxPlayers: 200, MaxAdmins: 999},
}

// Tiers lists the plans in ascending order.
func Tiers() []Tier {
	return []Tier{TierFree, TierPro, TierClub, TierEnterprise}
}

// ParseTier normalises s into a known Tier.
func ParseTier(s string) (Tier, error) {
	tier := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tierLimits[tier]; !ok {
		return "", fmt.Errorf("membership: unknown tier %q", s)
	}
	return tier, nil
}

// Valid reports whether t has a limits entry.
func (t Tier) Valid() bool {
	_, ok := tierLimits[t]
	return ok
}

// LimitsFor returns the ceilings for tier. Unknown tiers get zero limits,
// so nothing can be admitted to them.
func LimitsFor(tier Tier) Limits {
	return tierLimits[tier]
}

// For returns the ceiling that applies to role. Every non-player role shares
// the admin ceiling.
func (l Limits) For(role Role) int {
	if role == RolePlayer {
		return l.MaxPlayers
	}
	return l.MaxAdmins
}

func (t Tier) String() string { return string(t) }
