package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/teamsync/teamsync/pkg/crypto"
	apperrors "github.com/teamsync/teamsync/pkg/errors"
	"github.com/teamsync/teamsync/pkg/validator"
)

var (
	// ErrInviteNotFound indicates no invite matches the code or id.
	ErrInviteNotFound = apperrors.New("INVITE_NOT_FOUND", "Invite not found", http.StatusNotFound)
	// ErrInviteExpired indicates the invite passed its expiry time.
	ErrInviteExpired = apperrors.New("INVITE_EXPIRED", "Invite has expired", http.StatusGone)
	// ErrInviteDeactivated indicates the invite was revoked.
	ErrInviteDeactivated = apperrors.New("INVITE_DEACTIVATED", "Invite has been deactivated", http.StatusGone)
	// ErrInviteExhausted indicates the invite reached its use ceiling.
	ErrInviteExhausted = apperrors.New("INVITE_EXHAUSTED", "Invite has no uses left", http.StatusGone)
	// ErrInvalidOrExpiredCode is what join callers see for any unusable code.
	ErrInvalidOrExpiredCode = apperrors.New("INVITE_INVALID", "This invite link is no longer valid", http.StatusGone)
	// ErrRoleCapacityFull indicates the team's tier has no room for the role.
	ErrRoleCapacityFull = apperrors.New("ROLE_CAPACITY_FULL", "This team is full for that role. Ask an admin to upgrade the plan.", http.StatusConflict)

	ErrTeamNotFound   = apperrors.New("TEAM_NOT_FOUND", "Team not found", http.StatusNotFound)
	ErrMemberNotFound = apperrors.New("MEMBER_NOT_FOUND", "Member not found", http.StatusNotFound)
	ErrEmailInUse     = apperrors.New("EMAIL_IN_USE", "Email is already on this team", http.StatusConflict)
)

// invalidInput turns a struct validation failure into a 400 that names
// each offending field.
func invalidInput(err error) *apperrors.AppError {
	if failures, ok := validator.AsValidationErrors(err); ok {
		return apperrors.NewValidation(failures.Error(), failures.Fields())
	}
	return apperrors.NewBadRequest(err.Error())
}

// hashPassword hashes a member password, reporting an over-long one as bad input.
func hashPassword(password string) (string, error) {
	hash, err := crypto.HashPassword(password)
	if errors.Is(err, crypto.ErrPasswordTooLong) {
		return "", apperrors.NewValidation("password is too long", map[string]string{"password": "is too long"})
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") || strings.Contains(lower, "duplicate")
}
