package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/teamsync/teamsync/internal/membership"
	"github.com/teamsync/teamsync/internal/models"
	apperrors "github.com/teamsync/teamsync/pkg/errors"
	"github.com/teamsync/teamsync/pkg/validator"
)

// CreateTeamInput captures a new team and the coach who owns it.
type CreateTeamInput struct {
	Name          string `json:"name" validate:"required,max=120"`
	Sport         string `json:"sport" validate:"max=60"`
	Tier          string `json:"tier" validate:"omitempty,oneof=free pro club enterprise"`
	OwnerName     string `json:"owner_name" validate:"required,max=120"`
	OwnerEmail    string `json:"owner_email" validate:"required,email"`
	OwnerPassword string `json:"owner_password" validate:"required,min=8,max=72"`
}

// TeamOverview is a team with its current capacity usage.
type TeamOverview struct {
	Team   *models.Team          `json:"team"`
	Counts membership.RoleCounts `json:"counts"`
	Usage  membership.Usage      `json:"usage"`
}

// TeamService handles team lifecycle.
type TeamService struct {
	db     *gorm.DB
	roster *TeamRoster
	audit  *AuditService
	now    func() time.Time
}

// NewTeamService constructs a TeamService instance.
func NewTeamService(db *gorm.DB, roster *TeamRoster, audit *AuditService) (*TeamService, error) {
	if db == nil {
		return nil, errors.New("team service: db is required")
	}
	if roster == nil {
		return nil, errors.New("team service: roster is required")
	}
	return &TeamService{db: db, roster: roster, audit: audit, now: systemClock}, nil
}

// Create registers a team and seats its owner as coach.
func (s *TeamService) Create(ctx context.Context, input CreateTeamInput) (*models.Team, *models.Member, error) {
	ctx = ensureContext(ctx)

	input.Name = strings.TrimSpace(input.Name)
	input.OwnerName = strings.TrimSpace(input.OwnerName)
	input.OwnerEmail = normaliseEmail(input.OwnerEmail)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, nil, invalidInput(err)
	}

	tier := membership.TierFree
	if input.Tier != "" {
		parsed, err := membership.ParseTier(input.Tier)
		if err != nil {
			return nil, nil, apperrors.NewBadRequest(err.Error())
		}
		tier = parsed
	}

	hash, err := hashPassword(input.OwnerPassword)
	if err != nil {
		return nil, nil, err
	}

	team := &models.Team{
		Name:   input.Name,
		Sport:  strings.TrimSpace(input.Sport),
		Tier:   tier,
		Status: models.TeamStatusActive,
	}
	owner := &models.Member{
		Name:         input.OwnerName,
		Email:        input.OwnerEmail,
		PasswordHash: hash,
		Role:         membership.RoleCoach,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return fmt.Errorf("team service: create team: %w", err)
		}
		owner.TeamID = team.ID
		if err := s.roster.WithTx(tx).AddMember(ctx, owner); err != nil {
			return err
		}
		team.OwnerID = owner.ID
		return tx.Model(team).Update("owner_id", owner.ID).Error
	})
	if err != nil {
		return nil, nil, err
	}

	recordAudit(s.audit, ctx, AuditEntry{
		TeamID:   team.ID,
		ActorID:  owner.ID,
		Action:   "team.create",
		Resource: "teams",
		Result:   AuditResultSuccess,
		Metadata: map[string]any{"tier": string(tier)},
	})

	return team, owner, nil
}

// Get loads a team by id.
func (s *TeamService) Get(ctx context.Context, id string) (*models.Team, error) {
	ctx = ensureContext(ctx)
	return findTeam(s.db.WithContext(ctx), id)
}

// List returns every team ordered by name.
func (s *TeamService) List(ctx context.Context) ([]models.Team, error) {
	ctx = ensureContext(ctx)

	var teams []models.Team
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("team service: list teams: %w", err)
	}
	return teams, nil
}

// Overview returns the team with its roster counts and per-role headroom.
func (s *TeamService) Overview(ctx context.Context, id string) (*TeamOverview, error) {
	team, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.roster.Counts(ctx, team.ID)
	if err != nil {
		return nil, err
	}
	return &TeamOverview{
		Team:   team,
		Counts: counts,
		Usage:  membership.UsageFor(team.Tier, counts),
	}, nil
}

// SetTier moves a team to another plan. Existing members are never evicted,
// so a downgrade can leave a role over its new limit.
func (s *TeamService) SetTier(ctx context.Context, id string, tier membership.Tier, actorID string) (*models.Team, error) {
	ctx = ensureContext(ctx)

	if !tier.Valid() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown tier %q", tier))
	}

	team, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := team.Tier

	if err := s.db.WithContext(ctx).Model(team).Update("tier", tier).Error; err != nil {
		return nil, fmt.Errorf("team service: set tier: %w", err)
	}
	team.Tier = tier

	recordAudit(s.audit, ctx, AuditEntry{
		TeamID:   team.ID,
		ActorID:  actorID,
		Action:   "team.tier",
		Resource: "teams",
		Result:   AuditResultSuccess,
		Metadata: map[string]any{"from": string(previous), "to": string(tier)},
	})

	return team, nil
}

func findTeam(db *gorm.DB, id string) (*models.Team, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewBadRequest("team id is required")
	}

	var team models.Team
	err := db.Take(&team, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("team service: get team: %w", err)
	}
	return &team, nil
}
