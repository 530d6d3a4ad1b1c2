package models

// VideoProgress records how far a member has watched a scouting video.
type VideoProgress struct {
	BaseModel

	TeamID          string  `gorm:"type:uuid;not null;index" json:"team_id"`
	MemberID        string  `gorm:"type:uuid;not null;uniqueIndex:idx_progress_member_video" json:"member_id"`
	VideoID         string  `gorm:"not null;uniqueIndex:idx_progress_member_video" json:"video_id"`
	PositionSeconds float64 `json:"position_seconds"`
	Completed       bool    `json:"completed"`
}
