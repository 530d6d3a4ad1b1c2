package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/teamsync/teamsync/pkg/errors"
	"github.com/teamsync/teamsync/pkg/response"
	appValidator "github.com/teamsync/teamsync/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, validationError(err))
		return false
	}

	return true
}

// validationError carries every failing field back to the client.
func validationError(err error) *appErrors.AppError {
	failures, ok := appValidator.AsValidationErrors(err)
	if !ok {
		return appErrors.NewBadRequest("invalid request payload")
	}
	return appErrors.NewValidation(failures.Error(), failures.Fields())
}

// queryInt reads an optional integer query parameter. Garbage is a client
// error rather than a silent fallback.
func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, appErrors.NewValidation(key+" must be a whole number", map[string]string{key: "must be a whole number"})
	}
	return parsed, nil
}
