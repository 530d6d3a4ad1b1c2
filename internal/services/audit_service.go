package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/teamsync/teamsync/internal/models"
	apperrors "github.com/teamsync/teamsync/pkg/errors"
)

// Audit results.
const (
	AuditResultSuccess = "success"
	AuditResultDenied  = "denied"
	AuditResultFailure = "failure"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// AuditEntry captures a single audit event to persist.
type AuditEntry struct {
	TeamID    string
	ActorID   string
	Action    string
	Resource  string
	Result    string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

// ActivityQuery selects a page of one team's activity, newest first.
// Action matches exactly, or by prefix when it ends in ".*" ("invite.*").
// Before is the cursor returned with the previous page.
type ActivityQuery struct {
	Action  string
	ActorID string
	Result  string
	Before  string
	Limit   int
}

// ActivityPage is one page of a team's activity feed.
type ActivityPage struct {
	Entries    []models.AuditLog `json:"entries"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// AuditService records what happens to teams and serves each team's trail.
type AuditService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db, now: systemClock}, nil
}

// Log stores an audit entry, marshalling metadata into JSON form.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	ctx = ensureContext(ctx)

	action := strings.TrimSpace(entry.Action)
	result := strings.TrimSpace(entry.Result)
	if action == "" || result == "" {
		return errors.New("audit service: action and result are required")
	}

	row := models.AuditLog{
		TeamID:    optionalID(entry.TeamID),
		ActorID:   optionalID(entry.ActorID),
		Action:    action,
		Resource:  strings.TrimSpace(entry.Resource),
		Result:    result,
		IPAddress: strings.TrimSpace(entry.IPAddress),
		UserAgent: strings.TrimSpace(entry.UserAgent),
		CreatedAt: s.now(),
	}
	if len(entry.Metadata) > 0 {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("audit service: marshal metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(encoded)
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("audit service: create log: %w", err)
	}
	return nil
}

// TeamActivity pages through teamID's trail by descending id. A full page
// carries a cursor; the last page does not.
func (s *AuditService) TeamActivity(ctx context.Context, teamID string, q ActivityQuery) (*ActivityPage, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(teamID) == "" {
		return nil, apperrors.NewBadRequest("team id is required")
	}
	limit := q.Limit
	switch {
	case limit <= 0:
		limit = defaultActivityLimit
	case limit > maxActivityLimit:
		limit = maxActivityLimit
	}

	query := s.db.WithContext(ctx).Where("team_id = ?", teamID)
	if action := strings.TrimSpace(q.Action); action != "" {
		if prefix, ok := strings.CutSuffix(action, ".*"); ok {
			query = query.Where("action LIKE ?", prefix+".%")
		} else {
			query = query.Where("action = ?", action)
		}
	}
	if q.ActorID != "" {
		query = query.Where("actor_id = ?", q.ActorID)
	}
	if q.Result != "" {
		query = query.Where("result = ?", q.Result)
	}
	if q.Before != "" {
		query = query.Where("id < ?", q.Before)
	}

	var rows []models.AuditLog
	if err := query.Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("audit service: team activity: %w", err)
	}

	page := &ActivityPage{Entries: rows}
	if len(rows) > limit {
		page.Entries = rows[:limit]
		page.NextCursor = rows[limit-1].ID
	}
	return page, nil
}

// CleanupOlderThan removes audit logs older than the supplied retention window (in days).
func (s *AuditService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	ctx = ensureContext(ctx)

	if retentionDays <= 0 {
		return 0, errors.New("audit service: retentionDays must be positive")
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func optionalID(id string) *string {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return &id
}
