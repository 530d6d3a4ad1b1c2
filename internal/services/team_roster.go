package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/teamsync/teamsync/internal/events"
	"github.com/teamsync/teamsync/internal/membership"
	"github.com/teamsync/teamsync/internal/models"
	apperrors "github.com/teamsync/teamsync/pkg/errors"
	"github.com/teamsync/teamsync/pkg/logger"
	"github.com/teamsync/teamsync/pkg/metrics"
)

// RosterOption customises TeamRoster behaviour.
type RosterOption func(*TeamRoster)

// WithRosterClock injects a custom clock primarily for testing.
func WithRosterClock(clock func() time.Time) RosterOption {
	return func(r *TeamRoster) {
		if clock != nil {
			r.now = clock
		}
	}
}

// WithRosterAudit records removals in the audit log.
func WithRosterAudit(audit *AuditService) RosterOption {
	return func(r *TeamRoster) {
		r.audit = audit
	}
}

// TeamRoster is the member set of every team.
type TeamRoster struct {
	db    *gorm.DB
	bus   *events.Bus
	audit *AuditService
	now   func() time.Time
}

// NewTeamRoster constructs a TeamRoster. bus may be nil.
func NewTeamRoster(db *gorm.DB, bus *events.Bus, opts ...RosterOption) (*TeamRoster, error) {
	if db == nil {
		return nil, errors.New("team roster: db is required")
	}

	roster := &TeamRoster{db: db, bus: bus, now: systemClock}
	for _, opt := range opts {
		opt(roster)
	}
	return roster, nil
}

// WithTx returns a roster bound to tx.
func (r *TeamRoster) WithTx(tx *gorm.DB) *TeamRoster {
	cpy := *r
	cpy.db = tx
	return &cpy
}

// AddMember appends member to its team. Only the primary key and the
// per-team email index constrain it.
func (r *TeamRoster) AddMember(ctx context.Context, member *models.Member) error {
	ctx = ensureContext(ctx)

	if member == nil {
		return apperrors.NewBadRequest("member is required")
	}
	if strings.TrimSpace(member.TeamID) == "" {
		return apperrors.NewBadRequest("team id is required")
	}
	if !member.Role.Valid() {
		return apperrors.NewBadRequest(fmt.Sprintf("unknown role %q", member.Role))
	}
	member.Email = normaliseEmail(member.Email)

	if member.CreatedAt.IsZero() {
		now := r.now()
		member.CreatedAt = now
		member.UpdatedAt = now
	}

	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		if isUniqueConstraintError(err) {
			return ErrEmailInUse
		}
		return fmt.Errorf("team roster: add member: %w", err)
	}
	return nil
}

// GetMember loads a member of teamID.
func (r *TeamRoster) GetMember(ctx context.Context, teamID, memberID string) (*models.Member, error) {
	ctx = ensureContext(ctx)

	var member models.Member
	err := r.db.WithContext(ctx).Take(&member, "id = ? AND team_id = ?", memberID, teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("team roster: get member: %w", err)
	}
	return &member, nil
}

// FindByEmail returns the team member registered with email, if any.
func (r *TeamRoster) FindByEmail(ctx context.Context, teamID, email string) (*models.Member, bool, error) {
	ctx = ensureContext(ctx)

	var member models.Member
	err := r.db.WithContext(ctx).Take(&member, "team_id = ? AND email = ?", teamID, normaliseEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("team roster: find by email: %w", err)
	}
	return &member, true, nil
}

// RemoveMember deletes a member and then announces MemberRemoved. Subscriber
// failures are logged; the removal itself stands.
func (r *TeamRoster) RemoveMember(ctx context.Context, teamID, memberID, removedBy string) (*models.Member, error) {
	ctx = ensureContext(ctx)

	member, err := r.GetMember(ctx, teamID, memberID)
	if err != nil {
		return nil, err
	}

	result := r.db.WithContext(ctx).Delete(&models.Member{}, "id = ? AND team_id = ?", memberID, teamID)
	if result.Error != nil {
		return nil, fmt.Errorf("team roster: remove member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrMemberNotFound
	}
	metrics.MembersRemoved.Inc()

	recordAudit(r.audit, ctx, AuditEntry{
		TeamID:   teamID,
		ActorID:  removedBy,
		Action:   "member.remove",
		Resource: "members",
		Result:   AuditResultSuccess,
		Metadata: map[string]any{"member_id": memberID, "role": string(member.Role)},
	})

	event := events.MemberRemoved{
		TeamID:    teamID,
		MemberID:  memberID,
		Role:      member.Role,
		RemovedBy: removedBy,
		At:        r.now(),
	}
	if err := r.bus.Publish(ctx, event); err != nil {
		logger.WithTeam(logger.WithModule("roster"), teamID).Warn("member removal side effects incomplete",
			zap.String("member_id", memberID),
			zap.Error(err),
		)
	}

	return member, nil
}

// CountByRole counts members holding exactly role.
func (r *TeamRoster) CountByRole(ctx context.Context, teamID string, role membership.Role) (int, error) {
	ctx = ensureContext(ctx)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("team_id = ? AND role = ?", teamID, role).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("team roster: count by role: %w", err)
	}
	return int(count), nil
}

// Counts summarises the roster in the buckets the tier gate uses.
func (r *TeamRoster) Counts(ctx context.Context, teamID string) (membership.RoleCounts, error) {
	ctx = ensureContext(ctx)

	var rows []struct {
		Role  membership.Role
		Total int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Select("role, COUNT(*) AS total").
		Where("team_id = ?", teamID).
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return membership.RoleCounts{}, fmt.Errorf("team roster: counts: %w", err)
	}

	var counts membership.RoleCounts
	for _, row := range rows {
		counts.AddN(row.Role, row.Total)
	}
	return counts, nil
}

// ListMembers returns the roster ordered by join time.
func (r *TeamRoster) ListMembers(ctx context.Context, teamID string) ([]models.Member, error) {
	ctx = ensureContext(ctx)

	var members []models.Member
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("team roster: list members: %w", err)
	}
	return members, nil
}
