package models

// ChatMessage is a post in a team's channel.
type ChatMessage struct {
	BaseModel

	TeamID   string `gorm:"type:uuid;not null;index" json:"team_id"`
	MemberID string `gorm:"type:uuid;not null;index" json:"member_id"`
	Author   string `json:"author"`
	Body     string `gorm:"type:text;not null" json:"body"`
}
