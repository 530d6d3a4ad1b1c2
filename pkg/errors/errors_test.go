package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWrapIncludesInternal(t *testing.T) {
	err := Wrap(stdErrors.New("disk full"), "store invite")
	require.Equal(t, "store invite: disk full", err.Error())
	require.Equal(t, http.StatusInternalServerError, err.StatusCode)
}

func TestWithInternalCopies(t *testing.T) {
	base := New("ROLE_CAPACITY_FULL", "full", http.StatusConflict)
	with := base.WithInternal(stdErrors.New("players 25/25"))

	require.NotSame(t, base, with)
	require.Nil(t, base.Internal)
	require.NotNil(t, with.Internal)
	require.ErrorIs(t, with, base)
}

func TestFromError(t *testing.T) {
	require.Same(t, ErrNotFound, FromError(ErrNotFound))

	wrapped := fmt.Errorf("roster: %w", ErrConflict)
	require.Same(t, ErrConflict, FromError(wrapped))

	out := FromError(stdErrors.New("raw"))
	require.Equal(t, ErrInternalServer.Code, out.Code)
	require.NotNil(t, out.Internal)

	require.Nil(t, FromError(nil))
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("expires_in must not be zero")
	require.Equal(t, ErrBadRequest.Code, err.Code)
	require.Equal(t, ErrBadRequest.StatusCode, err.StatusCode)
	require.True(t, IsValidation(err))
	require.True(t, IsValidation(fmt.Errorf("admission: %w", err)))
	require.False(t, IsValidation(ErrForbidden))
}

func TestNewValidationCarriesFields(t *testing.T) {
	err := NewValidation("email must be a valid email address", map[string]string{"email": "must be a valid email address"})
	require.True(t, IsValidation(err))
	require.Equal(t, "must be a valid email address", err.Fields["email"])

	require.Nil(t, NewValidation("bad", nil).Fields)
}

func TestWithRetryAfterCopies(t *testing.T) {
	limited := ErrRateLimit.WithRetryAfter(30 * time.Second)

	require.Equal(t, 30*time.Second, limited.RetryAfter)
	require.Zero(t, ErrRateLimit.RetryAfter)
	require.ErrorIs(t, limited, ErrRateLimit)
	require.NotErrorIs(t, limited, ErrConflict)
}

func TestWrapUsesInternalCode(t *testing.T) {
	err := Wrap(stdErrors.New("boom"), "issue access token")
	require.Equal(t, ErrInternalServer.Code, err.Code)
	require.Same(t, err, FromError(fmt.Errorf("session: %w", err)))
}
