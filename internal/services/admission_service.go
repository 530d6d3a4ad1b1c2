package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/teamsync/teamsync/internal/database"
	"github.com/teamsync/teamsync/internal/events"
	"github.com/teamsync/teamsync/internal/membership"
	"github.com/teamsync/teamsync/internal/models"
	apperrors "github.com/teamsync/teamsync/pkg/errors"
	"github.com/teamsync/teamsync/pkg/logger"
	"github.com/teamsync/teamsync/pkg/metrics"
	"github.com/teamsync/teamsync/pkg/validator"
)

// Redemption outcomes as reported in metrics.
const (
	RedeemResultOK           = "ok"
	RedeemResultInvalidCode  = "invalid_or_expired_code"
	RedeemResultCapacityFull = "role_capacity_full"
	RedeemResultValidation   = "validation_error"
	RedeemResultEmailInUse   = "email_in_use"
	RedeemResultError        = "error"
)

// IssueInviteInput describes an invite requested by a team manager.
type IssueInviteInput struct {
	TeamID    string
	Role      membership.Role
	CreatedBy string
	ExpiresIn time.Duration
	MaxUses   int
}

// IssuedInvite is a freshly created invite and its shareable link.
type IssuedInvite struct {
	Invite *models.Invite `json:"invite"`
	Link   string         `json:"link"`
}

// RedeemInput is what a prospective member submits on the join page.
type RedeemInput struct {
	Code     string `json:"code" validate:"required,invite_code"`
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// InvitePreview is the public view of a redeemable invite.
type InvitePreview struct {
	Code      string          `json:"code"`
	TeamID    string          `json:"team_id"`
	TeamName  string          `json:"team_name"`
	Sport     string          `json:"sport"`
	Role      membership.Role `json:"role"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// AdmissionOption customises AdmissionService behaviour.
type AdmissionOption func(*AdmissionService)

// WithJoinBaseURL sets the origin join links are built on.
func WithJoinBaseURL(url string) AdmissionOption {
	return func(s *AdmissionService) {
		s.baseURL = strings.TrimRight(strings.TrimSpace(url), "/")
	}
}

// WithAdmissionAudit records issue and redeem outcomes in the audit log.
func WithAdmissionAudit(audit *AuditService) AdmissionOption {
	return func(s *AdmissionService) {
		s.audit = audit
	}
}

// WithAdmissionClock injects a custom clock primarily for testing.
func WithAdmissionClock(clock func() time.Time) AdmissionOption {
	return func(s *AdmissionService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// AdmissionService composes the registry, the tier gate and the roster into
// the issue and join flows. Redemptions for one team run one at a time: a
// process-local lock per team plus a row lock on the team where the
// database supports it.
type AdmissionService struct {
	db       *gorm.DB
	registry *InviteRegistry
	roster   *TeamRoster
	bus      *events.Bus
	audit    *AuditService
	locks    *keyedMutex
	baseURL  string
	now      func() time.Time
}

// NewAdmissionService constructs an AdmissionService. bus may be nil.
func NewAdmissionService(db *gorm.DB, registry *InviteRegistry, roster *TeamRoster, bus *events.Bus, opts ...AdmissionOption) (*AdmissionService, error) {
	if db == nil {
		return nil, errors.New("admission service: db is required")
	}
	if registry == nil {
		return nil, errors.New("admission service: registry is required")
	}
	if roster == nil {
		return nil, errors.New("admission service: roster is required")
	}

	svc := &AdmissionService{
		db:       db,
		registry: registry,
		roster:   roster,
		bus:      bus,
		locks:    newKeyedMutex(),
		now:      systemClock,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// JoinLink renders the URL a prospective member opens to redeem code.
func (s *AdmissionService) JoinLink(code string) string {
	return fmt.Sprintf("%s/join/%s", s.baseURL, code)
}

// IssueInvite creates an invite if the team still has room for the role.
func (s *AdmissionService) IssueInvite(ctx context.Context, in IssueInviteInput) (*IssuedInvite, error) {
	ctx = ensureContext(ctx)

	if !in.Role.Invitable() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("role %q cannot be granted by invite", in.Role))
	}

	team, err := findTeam(s.db.WithContext(ctx), in.TeamID)
	if err != nil {
		return nil, err
	}

	counts, err := s.roster.Counts(ctx, team.ID)
	if err != nil {
		return nil, err
	}
	if decision := membership.CanAdmit(in.Role, team.Tier, counts); !decision.Allowed {
		metrics.CapacityRejections.WithLabelValues(string(team.Tier), string(in.Role)).Inc()
		recordAudit(s.audit, ctx, AuditEntry{
			TeamID:   team.ID,
			ActorID:  in.CreatedBy,
			Action:   "invite.issue",
			Resource: "invites",
			Result:   AuditResultDenied,
			Metadata: map[string]any{"role": string(in.Role), "limit": decision.Limit, "current": decision.Current},
		})
		return nil, ErrRoleCapacityFull
	}

	invite, err := s.registry.CreateInvite(ctx, CreateInviteInput{
		TeamID:    team.ID,
		Role:      in.Role,
		CreatedBy: in.CreatedBy,
		ExpiresIn: in.ExpiresIn,
		MaxUses:   in.MaxUses,
	})
	if err != nil {
		return nil, err
	}

	metrics.InvitesIssued.WithLabelValues(string(in.Role)).Inc()
	recordAudit(s.audit, ctx, AuditEntry{
		TeamID:   team.ID,
		ActorID:  in.CreatedBy,
		Action:   "invite.issue",
		Resource: "invites",
		Result:   AuditResultSuccess,
		Metadata: map[string]any{"invite_id": invite.ID, "role": string(in.Role), "expires_at": invite.ExpiresAt},
	})

	return &IssuedInvite{Invite: invite, Link: s.JoinLink(invite.Code)}, nil
}

// RevokeInvite deactivates an invite of teamID and records who did it. An
// empty teamID skips the ownership check, for operator tooling.
func (s *AdmissionService) RevokeInvite(ctx context.Context, teamID, inviteID, actorID string) (*models.Invite, error) {
	ctx = ensureContext(ctx)

	invite, err := s.registry.GetInviteByID(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if teamID != "" && invite.TeamID != teamID {
		return nil, ErrInviteNotFound
	}
	if err := s.registry.DeactivateInvite(ctx, invite.ID); err != nil {
		return nil, err
	}
	invite.Active = false

	recordAudit(s.audit, ctx, AuditEntry{
		TeamID:   invite.TeamID,
		ActorID:  actorID,
		Action:   "invite.deactivate",
		Resource: "invites",
		Result:   AuditResultSuccess,
		Metadata: map[string]any{"invite_id": invite.ID, "role": string(invite.Role)},
	})
	return invite, nil
}

// Preview describes a redeemable invite for the join page.
func (s *AdmissionService) Preview(ctx context.Context, code string) (*InvitePreview, error) {
	ctx = ensureContext(ctx)

	invite, err := s.inspect(ctx, normaliseCode(code))
	if err != nil {
		return nil, err
	}

	team, err := findTeam(s.db.WithContext(ctx), invite.TeamID)
	if err != nil {
		if errors.Is(err, ErrTeamNotFound) {
			return nil, ErrInvalidOrExpiredCode
		}
		return nil, err
	}
	if team.Status != models.TeamStatusActive {
		return nil, ErrInvalidOrExpiredCode
	}

	return &InvitePreview{
		Code:      invite.Code,
		TeamID:    team.ID,
		TeamName:  team.Name,
		Sport:     team.Sport,
		Role:      invite.Role,
		ExpiresAt: invite.ExpiresAt,
	}, nil
}

// Redeem admits a new member through an invite code. Nothing is written
// unless every step succeeds.
func (s *AdmissionService) Redeem(ctx context.Context, in RedeemInput) (member *models.Member, err error) {
	ctx = ensureContext(ctx)

	defer func() {
		metrics.Redemptions.WithLabelValues(redeemResult(err)).Inc()
	}()

	in.Code = normaliseCode(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normaliseEmail(in.Email)
	if verr := validator.ValidateStruct(in); verr != nil {
		return nil, invalidInput(verr)
	}

	invite, err := s.inspect(ctx, in.Code)
	if err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(invite.TeamID)
	defer unlock()

	member = &models.Member{
		TeamID:       invite.TeamID,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         invite.Role,
		InviteID:     &invite.ID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.admit(ctx, tx, in.Code, member)
	})
	if errors.Is(err, ErrInvalidOrExpiredCode) {
		err = s.settleLapsedInvite(ctx, in.Code, err)
	}
	if err != nil {
		s.auditRedeem(ctx, invite, in.Email, err)
		return nil, err
	}

	s.auditRedeem(ctx, invite, in.Email, nil)
	if perr := s.bus.Publish(ctx, events.MemberJoined{
		TeamID:   member.TeamID,
		MemberID: member.ID,
		Name:     member.Name,
		Role:     member.Role,
		InviteID: invite.ID,
		At:       s.now(),
	}); perr != nil {
		logger.WithTeam(logger.WithModule("admission"), member.TeamID).
			Warn("member joined side effects incomplete", zap.Error(perr))
	}

	return member, nil
}

// admit runs the check-then-act sequence inside tx.
func (s *AdmissionService) admit(ctx context.Context, tx *gorm.DB, code string, member *models.Member) error {
	teamQuery := tx.WithContext(ctx)
	if database.SupportsRowLocks(tx) {
		teamQuery = teamQuery.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	team, err := findTeam(teamQuery, member.TeamID)
	if err != nil {
		if errors.Is(err, ErrTeamNotFound) {
			return ErrInvalidOrExpiredCode
		}
		return err
	}
	if team.Status != models.TeamStatusActive {
		return ErrInvalidOrExpiredCode
	}

	roster := s.roster.WithTx(tx)
	counts, err := roster.Counts(ctx, team.ID)
	if err != nil {
		return err
	}
	if decision := membership.CanAdmit(member.Role, team.Tier, counts); !decision.Allowed {
		metrics.CapacityRejections.WithLabelValues(string(team.Tier), string(member.Role)).Inc()
		return ErrRoleCapacityFull
	}

	if _, exists, err := roster.FindByEmail(ctx, team.ID, member.Email); err != nil {
		return err
	} else if exists {
		return ErrEmailInUse
	}

	used, err := s.registry.WithTx(tx).UseInvite(ctx, code)
	if err != nil {
		return err
	}
	if !used {
		return ErrInvalidOrExpiredCode
	}

	return roster.AddMember(ctx, member)
}

// settleLapsedInvite re-reads an invite that lapsed after the pre-check.
// The rollback discarded any deactivation done inside the transaction, so the
// lazy expiry is applied again on the base handle.
func (s *AdmissionService) settleLapsedInvite(ctx context.Context, code string, txErr error) error {
	_, err := s.registry.Inspect(ctx, code)
	switch {
	case err == nil:
		return txErr
	case isInviteRejection(err):
		return ErrInvalidOrExpiredCode.WithInternal(err)
	default:
		logger.WithModule("admission").Warn("lapsed invite not settled", zap.Error(err))
		return txErr
	}
}

// inspect maps every registry rejection onto the one message join callers see.
func (s *AdmissionService) inspect(ctx context.Context, code string) (*models.Invite, error) {
	invite, err := s.registry.Inspect(ctx, code)
	if err != nil {
		if isInviteRejection(err) {
			return nil, ErrInvalidOrExpiredCode.WithInternal(err)
		}
		return nil, err
	}
	return invite, nil
}

func (s *AdmissionService) auditRedeem(ctx context.Context, invite *models.Invite, email string, err error) {
	entry := AuditEntry{
		TeamID:   invite.TeamID,
		Action:   "invite.redeem",
		Resource: "invites",
		Result:   AuditResultSuccess,
		Metadata: map[string]any{"invite_id": invite.ID, "email": email, "role": string(invite.Role)},
	}
	if err != nil {
		entry.Result = AuditResultDenied
		entry.Metadata["reason"] = redeemResult(err)
	}
	recordAudit(s.audit, ctx, entry)
}

func redeemResult(err error) string {
	switch {
	case err == nil:
		return RedeemResultOK
	case errors.Is(err, ErrInvalidOrExpiredCode):
		return RedeemResultInvalidCode
	case errors.Is(err, ErrRoleCapacityFull):
		return RedeemResultCapacityFull
	case errors.Is(err, ErrEmailInUse):
		return RedeemResultEmailInUse
	case apperrors.IsValidation(err):
		return RedeemResultValidation
	default:
		return RedeemResultError
	}
}

func normaliseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
