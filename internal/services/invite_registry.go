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
	"github.com/teamsync/teamsync/pkg/crypto"
	apperrors "github.com/teamsync/teamsync/pkg/errors"
	"github.com/teamsync/teamsync/pkg/validator"
)

const (
	// DefaultInviteExpiry is applied when a caller passes a zero ExpiresIn.
	DefaultInviteExpiry = 604800000 * time.Millisecond
	// MaxInviteExpiry caps how far ahead an invite may expire.
	MaxInviteExpiry = 365 * 24 * time.Hour

	inviteCodeLength          = 8
	defaultInviteCodeAttempts = 5
)

// InviteStatus filters ListInvites.
type InviteStatus string

const (
	InviteStatusAll      InviteStatus = "all"
	InviteStatusActive   InviteStatus = "active"
	InviteStatusExpired  InviteStatus = "expired"
	InviteStatusInactive InviteStatus = "inactive"
)

// CreateInviteInput describes a new invite. A zero ExpiresIn means
// DefaultInviteExpiry; a negative one yields an invite that is already expired.
type CreateInviteInput struct {
	TeamID    string
	Role      membership.Role
	CreatedBy string
	ExpiresIn time.Duration
	MaxUses   int
}

// RegistryOption customises InviteRegistry behaviour.
type RegistryOption func(*InviteRegistry)

// WithRegistryClock injects a custom clock primarily for testing.
func WithRegistryClock(clock func() time.Time) RegistryOption {
	return func(r *InviteRegistry) {
		if clock != nil {
			r.now = clock
		}
	}
}

// WithCodeSource replaces the random code generator.
func WithCodeSource(source func() (string, error)) RegistryOption {
	return func(r *InviteRegistry) {
		if source != nil {
			r.nextCode = source
		}
	}
}

// WithCodeAttempts bounds how many codes are tried before giving up on a collision.
func WithCodeAttempts(n int) RegistryOption {
	return func(r *InviteRegistry) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithDefaultExpiry overrides DefaultInviteExpiry.
func WithDefaultExpiry(d time.Duration) RegistryOption {
	return func(r *InviteRegistry) {
		if d > 0 {
			r.defaultExpiry = d
		}
	}
}

// InviteRegistry creates, validates, consumes and expires invite codes.
// Business outcomes come back as booleans or typed sentinels; a returned
// error from the boolean methods always means the database failed.
type InviteRegistry struct {
	db            *gorm.DB
	now           func() time.Time
	nextCode      func() (string, error)
	attempts      int
	defaultExpiry time.Duration
}

// NewInviteRegistry constructs an InviteRegistry.
func NewInviteRegistry(db *gorm.DB, opts ...RegistryOption) (*InviteRegistry, error) {
	if db == nil {
		return nil, errors.New("invite registry: db is required")
	}

	registry := &InviteRegistry{
		db:            db,
		now:           systemClock,
		attempts:      defaultInviteCodeAttempts,
		defaultExpiry: DefaultInviteExpiry,
		nextCode: func() (string, error) {
			return crypto.GenerateCode(validator.InviteCodeAlphabet, inviteCodeLength)
		},
	}
	for _, opt := range opts {
		opt(registry)
	}
	return registry, nil
}

// WithTx returns a registry bound to tx. Everything else is shared.
func (r *InviteRegistry) WithTx(tx *gorm.DB) *InviteRegistry {
	cpy := *r
	cpy.db = tx
	return &cpy
}

// CreateInvite stores a new invite with a fresh unique code. It does not
// consult team capacity.
func (r *InviteRegistry) CreateInvite(ctx context.Context, in CreateInviteInput) (*models.Invite, error) {
	ctx = ensureContext(ctx)

	teamID := strings.TrimSpace(in.TeamID)
	if teamID == "" {
		return nil, apperrors.NewBadRequest("team id is required")
	}
	if !in.Role.Invitable() {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("role %q cannot be granted by invite", in.Role))
	}
	if in.MaxUses < 0 {
		return nil, apperrors.NewBadRequest("max uses cannot be negative")
	}
	if in.ExpiresIn > MaxInviteExpiry {
		return nil, apperrors.NewBadRequest("invite expiry cannot exceed one year")
	}

	expiresIn := in.ExpiresIn
	if expiresIn == 0 {
		expiresIn = r.defaultExpiry
	}

	now := r.now()
	for attempt := 1; attempt <= r.attempts; attempt++ {
		code, err := r.nextCode()
		if err != nil {
			return nil, fmt.Errorf("invite registry: generate code: %w", err)
		}

		invite := &models.Invite{
			BaseModel: models.BaseModel{CreatedAt: now, UpdatedAt: now},
			TeamID:    teamID,
			Code:      code,
			Role:      in.Role,
			CreatedBy: strings.TrimSpace(in.CreatedBy),
			ExpiresAt: now.Add(expiresIn),
			MaxUses:   in.MaxUses,
			Active:    true,
		}

		err = r.db.WithContext(ctx).Create(invite).Error
		if err == nil {
			return invite, nil
		}
		if !isUniqueConstraintError(err) {
			return nil, fmt.Errorf("invite registry: create invite: %w", err)
		}
	}

	return nil, fmt.Errorf("invite registry: no unique code after %d attempts", r.attempts)
}

// GetInvite looks a code up exactly as stored. It does not judge validity.
func (r *InviteRegistry) GetInvite(ctx context.Context, code string) (*models.Invite, bool, error) {
	ctx = ensureContext(ctx)

	var invite models.Invite
	err := r.db.WithContext(ctx).Where("code = ?", code).Take(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("invite registry: get invite: %w", err)
	}
	return &invite, true, nil
}

// GetInviteByID loads an invite by primary key.
func (r *InviteRegistry) GetInviteByID(ctx context.Context, id string) (*models.Invite, error) {
	ctx = ensureContext(ctx)

	var invite models.Invite
	err := r.db.WithContext(ctx).Take(&invite, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invite registry: get invite by id: %w", err)
	}
	return &invite, nil
}

// Inspect classifies code without consuming it. Expired invites that are
// still marked active are deactivated on the way.
func (r *InviteRegistry) Inspect(ctx context.Context, code string) (*models.Invite, error) {
	invite, found, err := r.GetInvite(ctx, code)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrInviteNotFound
	}

	switch invite.StateAt(r.now()) {
	case models.InviteStateExpired:
		if invite.Active {
			if err := r.markInactive(ctx, invite); err != nil {
				return nil, err
			}
		}
		return invite, ErrInviteExpired
	case models.InviteStateInactive:
		return invite, ErrInviteDeactivated
	case models.InviteStateExhausted:
		return invite, ErrInviteExhausted
	}
	return invite, nil
}

// UseInvite counts one redemption of code. It returns false without
// touching the counter when the code is unknown, inactive, expired or used
// up. Capacity is not checked here.
func (r *InviteRegistry) UseInvite(ctx context.Context, code string) (bool, error) {
	ctx = ensureContext(ctx)

	invite, err := r.Inspect(ctx, code)
	if err != nil {
		if isInviteRejection(err) {
			return false, nil
		}
		return false, err
	}

	result := r.db.WithContext(ctx).
		Model(&models.Invite{}).
		Where("id = ? AND active = ? AND (max_uses = 0 OR uses < max_uses)", invite.ID, true).
		Updates(map[string]any{
			"uses":       gorm.Expr("uses + 1"),
			"updated_at": r.now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("invite registry: use invite: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// DeactivateInvite flips active to false. Unknown ids and repeated calls are no-ops.
func (r *InviteRegistry) DeactivateInvite(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	err := r.db.WithContext(ctx).
		Model(&models.Invite{}).
		Where("id = ? AND active = ?", id, true).
		Updates(map[string]any{"active": false, "updated_at": r.now()}).Error
	if err != nil {
		return fmt.Errorf("invite registry: deactivate invite: %w", err)
	}
	return nil
}

// GetActiveInvites returns the team's active, unexpired invites in creation order.
func (r *InviteRegistry) GetActiveInvites(ctx context.Context, teamID string) ([]models.Invite, error) {
	return r.ListInvites(ctx, teamID, InviteStatusActive)
}

// ListInvites returns the team's invites filtered by status, oldest first.
func (r *InviteRegistry) ListInvites(ctx context.Context, teamID string, status InviteStatus) ([]models.Invite, error) {
	ctx = ensureContext(ctx)

	now := r.now()
	query := r.db.WithContext(ctx).Model(&models.Invite{}).Where("team_id = ?", teamID)

	switch status {
	case "", InviteStatusAll:
	case InviteStatusActive:
		query = query.Where("active = ? AND expires_at > ?", true, now)
	case InviteStatusExpired:
		query = query.Where("expires_at <= ?", now)
	case InviteStatusInactive:
		query = query.Where("active = ?", false)
	default:
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown invite status %q", status))
	}

	var invites []models.Invite
	if err := query.Order("created_at ASC").Find(&invites).Error; err != nil {
		return nil, fmt.Errorf("invite registry: list invites: %w", err)
	}
	return invites, nil
}

// SweepExpired deactivates every expired invite still marked active.
func (r *InviteRegistry) SweepExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	now := r.now()
	result := r.db.WithContext(ctx).
		Model(&models.Invite{}).
		Where("active = ? AND expires_at <= ?", true, now).
		Updates(map[string]any{"active": false, "updated_at": now})
	if result.Error != nil {
		return 0, fmt.Errorf("invite registry: sweep expired: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// PurgeInactive deletes invites that have been inactive for longer than retention.
func (r *InviteRegistry) PurgeInactive(ctx context.Context, retention time.Duration) (int64, error) {
	ctx = ensureContext(ctx)

	if retention <= 0 {
		return 0, errors.New("invite registry: retention must be positive")
	}

	cutoff := r.now().Add(-retention)
	result := r.db.WithContext(ctx).
		Where("active = ? AND updated_at < ?", false, cutoff).
		Delete(&models.Invite{})
	if result.Error != nil {
		return 0, fmt.Errorf("invite registry: purge inactive: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *InviteRegistry) markInactive(ctx context.Context, invite *models.Invite) error {
	now := r.now()
	err := r.db.WithContext(ctx).
		Model(&models.Invite{}).
		Where("id = ?", invite.ID).
		Updates(map[string]any{"active": false, "updated_at": now}).Error
	if err != nil {
		return fmt.Errorf("invite registry: expire invite: %w", err)
	}
	invite.Active = false
	invite.UpdatedAt = now
	return nil
}

func isInviteRejection(err error) bool {
	return errors.Is(err, ErrInviteNotFound) ||
		errors.Is(err, ErrInviteExpired) ||
		errors.Is(err, ErrInviteDeactivated) ||
		errors.Is(err, ErrInviteExhausted)
}
