package validator

import (
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type joinPayload struct {
	Code     string `json:"code" validate:"required,invite_code"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password,omitempty" validate:"min=8"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := joinPayload{Code: "ABCD1234", Email: "sam@example.com", Password: "hooplife1"}
	require.NoError(t, ValidateStruct(payload))
}

func TestValidateStructFailuresUseJSONNames(t *testing.T) {
	err := ValidateStruct(joinPayload{Code: "abcd1234", Email: "invalid", Password: "short"})

	failures, ok := AsValidationErrors(err)
	require.True(t, ok, "expected ValidationErrors, got %T", err)
	require.Equal(t, map[string]string{
		"code":     "must be an 8 character invite code",
		"email":    "must be a valid email address",
		"password": "must be at least 8 characters",
	}, failures.Fields())
	require.Equal(t,
		"code must be an 8 character invite code; email must be a valid email address; password must be at least 8 characters",
		err.Error())
}

func TestFieldsKeepFirstFailure(t *testing.T) {
	failures := ValidationErrors{
		{Field: "owner_email", Tag: "required"},
		{Field: "owner_email", Tag: "email"},
		{Field: "tier", Tag: "oneof", Param: "free pro"},
	}
	require.Equal(t, "is required", failures.Fields()["owner_email"])
	require.Equal(t, "owner email is required; tier must be one of: free, pro", failures.Error())
}

func TestMessageFallsBackToTag(t *testing.T) {
	require.Equal(t, "failed validation: uuid", ValidationError{Tag: "uuid"}.Message())
	require.Equal(t, "failed validation: len=3", ValidationError{Tag: "len", Param: "3"}.Message())
	require.Equal(t, "validation failed", ValidationErrors{}.Error())
}

func TestAsValidationErrors(t *testing.T) {
	wrapped := fmt.Errorf("redeem: %w", ValidationErrors{{Field: "code", Tag: "required"}})
	failures, ok := AsValidationErrors(wrapped)
	require.True(t, ok)
	require.Len(t, failures, 1)

	_, ok = AsValidationErrors(fmt.Errorf("boom"))
	require.False(t, ok)
}

func TestIsInviteCode(t *testing.T) {
	require.True(t, IsInviteCode("ZZ99AA00"))
	require.False(t, IsInviteCode("ZZ99AA0"))
	require.False(t, IsInviteCode("ZZ99AA0-"))
	require.False(t, IsInviteCode("zz99aa00"))
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("sport", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "basketball"
	})
	require.NoError(t, err)

	type custom struct {
		Sport string `validate:"sport"`
	}

	require.NoError(t, ValidateStruct(custom{Sport: "basketball"}))
	require.Error(t, ValidateStruct(custom{Sport: "curling"}))
}
