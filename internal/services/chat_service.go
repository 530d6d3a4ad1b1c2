package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/teamsync/teamsync/internal/events"
	"github.com/teamsync/teamsync/internal/models"
	apperrors "github.com/teamsync/teamsync/pkg/errors"
)

const (
	maxChatMessageLength = 4000
	defaultChatPageSize  = 50
	maxChatPageSize      = 200
)

// ChatService stores team channel history.
type ChatService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewChatService constructs a ChatService.
func NewChatService(db *gorm.DB) (*ChatService, error) {
	if db == nil {
		return nil, errors.New("chat service: db is required")
	}
	return &ChatService{db: db, now: systemClock}, nil
}

// Post appends a message from author to the team channel.
func (s *ChatService) Post(ctx context.Context, author *models.Member, body string) (*models.ChatMessage, error) {
	ctx = ensureContext(ctx)

	if author == nil {
		return nil, apperrors.NewBadRequest("author is required")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewBadRequest("message body is required")
	}
	if len(body) > maxChatMessageLength {
		return nil, apperrors.NewBadRequest("message body is too long")
	}

	now := s.now()
	message := &models.ChatMessage{
		BaseModel: models.BaseModel{CreatedAt: now, UpdatedAt: now},
		TeamID:    author.TeamID,
		MemberID:  author.ID,
		Author:    author.Name,
		Body:      body,
	}
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, fmt.Errorf("chat service: post message: %w", err)
	}
	return message, nil
}

// History returns up to limit of the team's most recent messages, oldest first.
func (s *ChatService) History(ctx context.Context, teamID string, limit int) ([]models.ChatMessage, error) {
	ctx = ensureContext(ctx)

	if limit <= 0 {
		limit = defaultChatPageSize
	}
	if limit > maxChatPageSize {
		limit = maxChatPageSize
	}

	var messages []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("chat service: history: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Subscribe registers the chat reaction to roster changes on bus.
func (s *ChatService) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.MemberRemovedEvent, "chat", s.onMemberRemoved)
}

// A removed member's messages leave the channel with them.
func (s *ChatService) onMemberRemoved(ctx context.Context, event events.Event) error {
	removed, ok := event.(events.MemberRemoved)
	if !ok {
		return nil
	}
	err := s.db.WithContext(ctx).
		Where("team_id = ? AND member_id = ?", removed.TeamID, removed.MemberID).
		Delete(&models.ChatMessage{}).Error
	if err != nil {
		return fmt.Errorf("chat service: purge member messages: %w", err)
	}
	return nil
}
