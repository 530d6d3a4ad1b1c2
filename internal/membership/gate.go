package membership

// RoleCounts summarises a roster. Coaches count as admins.
type RoleCounts struct {
	Players int `json:"players"`
	Admins  int `json:"admins"`
	Staff   int `json:"staff"`
}

// CountRoles tallies roles into RoleCounts.
func CountRoles(roles []Role) RoleCounts {
	var counts RoleCounts
	for _, role := range roles {
		counts.Add(role)
	}
	return counts
}

// Add records one more member holding role.
func (c *RoleCounts) Add(role Role) {
	c.AddN(role, 1)
}

// AddN records n members holding role.
func (c *RoleCounts) AddN(role Role, n int) {
	switch role {
	case RolePlayer:
		c.Players += n
	case RoleAdmin, RoleCoach:
		c.Admins += n
	case RoleStaff:
		c.Staff += n
	}
}

// For returns the current count in the bucket role is limited by.
func (c RoleCounts) For(role Role) int {
	switch role {
	case RolePlayer:
		return c.Players
	case RoleAdmin, RoleCoach:
		return c.Admins
	case RoleStaff:
		return c.Staff
	}
	return 0
}

// Total is the roster size.
func (c RoleCounts) Total() int {
	return c.Players + c.Admins + c.Staff
}

// Decision is the outcome of a capacity check. Remaining goes negative when
// the roster already exceeds the limit, e.g. after a downgrade.
type Decision struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
	Limit     int  `json:"limit"`
	Current   int  `json:"current"`
}

// CanAdmit decides whether one more member with role fits on a team of tier
// whose roster currently holds roster.
func CanAdmit(role Role, tier Tier, roster RoleCounts) Decision {
	limit := LimitsFor(tier).For(role)
	current := roster.For(role)
	remaining := limit - current
	return Decision{
		Allowed:   remaining > 0,
		Remaining: remaining,
		Limit:     limit,
		Current:   current,
	}
}

// Usage reports both invitable roles for a tier, as shown on the team page.
type Usage struct {
	Tier    Tier     `json:"tier"`
	Limits  Limits   `json:"limits"`
	Players Decision `json:"players"`
	Admins  Decision `json:"admins"`
}

// UsageFor builds the Usage summary for a roster.
func UsageFor(tier Tier, roster RoleCounts) Usage {
	return Usage{
		Tier:    tier,
		Limits:  LimitsFor(tier),
		Players: CanAdmit(RolePlayer, tier, roster),
		Admins:  CanAdmit(RoleAdmin, tier, roster),
	}
}
