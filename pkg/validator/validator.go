package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// InviteCodeAlphabet is the symbol set invite codes are drawn from.
const InviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const inviteCodeLength = 8

var (
	once     sync.Once
	validate *validator.Validate
)

// phrases renders a failed rule for people filling in the team and join
// forms. %s is the rule parameter.
var phrases = map[string]string{
	"required":    "is required",
	"email":       "must be a valid email address",
	"min":         "must be at least %s characters",
	"max":         "must be at most %s characters",
	"oneof":       "must be one of: %s",
	"gte":         "must be at least %s",
	"lte":         "must be at most %s",
	"invite_code": "must be an 8 character invite code",
}

// ValidationError is one failed rule on one field, named as in JSON.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

// Message phrases the failure without the field name.
func (e ValidationError) Message() string {
	if format, ok := phrases[e.Tag]; ok {
		if strings.Contains(format, "%s") {
			return fmt.Sprintf(format, strings.ReplaceAll(e.Param, " ", ", "))
		}
		return format
	}
	if e.Param != "" {
		return fmt.Sprintf("failed validation: %s=%s", e.Tag, e.Param)
	}
	return "failed validation: " + e.Tag
}

// ValidationErrors collects multiple validation failures.
type ValidationErrors []ValidationError

// Fields maps each failing field to the message of its first failed rule.
func (v ValidationErrors) Fields() map[string]string {
	fields := make(map[string]string, len(v))
	for _, failure := range v {
		if _, seen := fields[failure.Field]; !seen {
			fields[failure.Field] = failure.Message()
		}
	}
	return fields
}

// Error joins the per-field messages in field order, e.g.
// "owner email must be a valid email address; password is required".
func (v ValidationErrors) Error() string {
	fields := v.Fields()
	if len(fields) == 0 {
		return "validation failed"
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = strings.ReplaceAll(name, "_", " ") + " " + fields[name]
	}
	return strings.Join(parts, "; ")
}

// AsValidationErrors unwraps err into ValidationErrors if it is one.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var failures ValidationErrors
	if errors.As(err, &failures) && len(failures) > 0 {
		return failures, true
	}
	return nil, false
}

// ValidateStruct validates a struct using registered rules.
func ValidateStruct(s interface{}) error {
	err := engine().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	failures := make(ValidationErrors, len(fieldErrs))
	for i, fe := range fieldErrs {
		failures[i] = ValidationError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()}
	}
	return failures
}

// RegisterValidation adds a custom rule.
func RegisterValidation(tag string, fn validator.Func) error {
	return engine().RegisterValidation(tag, fn)
}

// IsInviteCode reports whether value is an 8 character code over A-Z0-9.
func IsInviteCode(value string) bool {
	if len(value) != inviteCodeLength {
		return false
	}
	return strings.Trim(value, InviteCodeAlphabet) == ""
}

func engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
		_ = validate.RegisterValidation("invite_code", func(fl validator.FieldLevel) bool {
			return IsInviteCode(fl.Field().String())
		})
	})
	return validate
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}
