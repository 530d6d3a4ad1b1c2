package models

import "time"

// GoalPeriod is the window a goal's metric is measured over.
type GoalPeriod string

const (
	GoalPeriodGame   GoalPeriod = "game"
	GoalPeriodMonth  GoalPeriod = "month"
	GoalPeriodSeason GoalPeriod = "season"
)

// GoalMetrics lists the stat lines a goal can target. Nested stats use a
// dotted path.
var GoalMetrics = []string{
	"points",
	"assists",
	"steals",
	"blocks",
	"rebounds.total",
	"rebounds.offensive",
	"rebounds.defensive",
	"fieldGoals.percentage",
	"threePointers.percentage",
	"freeThrows.percentage",
}

// PlayerGoal is a stat target set for a member. Goals outlive the member
// they were set for; Active drops to false when the member leaves.
type PlayerGoal struct {
	BaseModel

	TeamID    string     `gorm:"type:uuid;not null;index" json:"team_id"`
	MemberID  string     `gorm:"type:uuid;not null;index" json:"member_id"`
	Metric    string     `gorm:"type:varchar(40);not null" json:"metric"`
	Target    float64    `gorm:"not null" json:"target"`
	Period    GoalPeriod `gorm:"type:varchar(16);not null" json:"period"`
	StartDate time.Time  `gorm:"not null" json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Active    bool       `gorm:"not null;default:true" json:"active"`
	CreatedBy string     `gorm:"type:varchar(36)" json:"created_by"`
}
