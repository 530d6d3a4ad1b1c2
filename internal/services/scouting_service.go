package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/teamsync/teamsync/internal/events"
	"github.com/teamsync/teamsync/internal/models"
	apperrors "github.com/teamsync/teamsync/pkg/errors"
)

// ProgressInput updates a member's position in a scouting video.
type ProgressInput struct {
	PositionSeconds float64 `json:"position_seconds" validate:"gte=0"`
	Completed       bool    `json:"completed"`
}

// ScoutingService tracks how far each member has watched scouting videos.
type ScoutingService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewScoutingService constructs a ScoutingService.
func NewScoutingService(db *gorm.DB) (*ScoutingService, error) {
	if db == nil {
		return nil, errors.New("scouting service: db is required")
	}
	return &ScoutingService{db: db, now: systemClock}, nil
}

// SaveProgress upserts the member's progress for videoID.
func (s *ScoutingService) SaveProgress(ctx context.Context, member *models.Member, videoID string, in ProgressInput) (*models.VideoProgress, error) {
	ctx = ensureContext(ctx)

	videoID = strings.TrimSpace(videoID)
	if member == nil || videoID == "" {
		return nil, apperrors.NewBadRequest("member and video id are required")
	}
	if in.PositionSeconds < 0 {
		return nil, apperrors.NewBadRequest("position cannot be negative")
	}

	now := s.now()
	progress := &models.VideoProgress{
		BaseModel:       models.BaseModel{CreatedAt: now, UpdatedAt: now},
		TeamID:          member.TeamID,
		MemberID:        member.ID,
		VideoID:         videoID,
		PositionSeconds: in.PositionSeconds,
		Completed:       in.Completed,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "member_id"}, {Name: "video_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"position_seconds", "completed", "updated_at"}),
	}).Create(progress).Error
	if err != nil {
		return nil, fmt.Errorf("scouting service: save progress: %w", err)
	}

	return s.Progress(ctx, member.ID, videoID)
}

// Progress returns the member's progress for videoID.
func (s *ScoutingService) Progress(ctx context.Context, memberID, videoID string) (*models.VideoProgress, error) {
	ctx = ensureContext(ctx)

	var progress models.VideoProgress
	err := s.db.WithContext(ctx).Take(&progress, "member_id = ? AND video_id = ?", memberID, videoID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scouting service: get progress: %w", err)
	}
	return &progress, nil
}

// Subscribe registers the scouting reaction to roster changes on bus.
func (s *ScoutingService) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.MemberRemovedEvent, "scouting", s.onMemberRemoved)
}

func (s *ScoutingService) onMemberRemoved(ctx context.Context, event events.Event) error {
	removed, ok := event.(events.MemberRemoved)
	if !ok {
		return nil
	}
	err := s.db.WithContext(ctx).
		Where("member_id = ?", removed.MemberID).
		Delete(&models.VideoProgress{}).Error
	if err != nil {
		return fmt.Errorf("scouting service: purge member progress: %w", err)
	}
	return nil
}
