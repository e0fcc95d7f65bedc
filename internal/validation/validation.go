// Package validation holds the input rules shared by the CLI and the mock API.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// StrongPasswordTag is the validator tag for the password strength rule
const StrongPasswordTag = "strongpassword"

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

// PasswordCheck is one requirement of the password strength rule
type PasswordCheck struct {
	Label string
	OK    bool
}

// PasswordChecks evaluates every strength requirement for password
func PasswordChecks(password string) []PasswordCheck {
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}

	return []PasswordCheck{
		{Label: fmt.Sprintf("at least %d characters", MinPasswordLength), OK: len([]rune(password)) >= MinPasswordLength},
		{Label: "an uppercase letter", OK: upper},
		{Label: "a lowercase letter", OK: lower},
		{Label: "a digit", OK: digit},
		{Label: "a symbol", OK: symbol},
	}
}

// IsStrongPassword reports whether password meets every requirement
func IsStrongPassword(password string) bool {
	for _, check := range PasswordChecks(password) {
		if !check.OK {
			return false
		}
	}
	return true
}

// CheckPassword returns an error listing the unmet requirements
func CheckPassword(password string) error {
	var missing []string
	for _, check := range PasswordChecks(password) {
		if !check.OK {
			missing = append(missing, check.Label)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("password must contain %s", strings.Join(missing, ", "))
}

// Register adds the portal rules to v
func Register(v *validator.Validate) error {
	return v.RegisterValidation(StrongPasswordTag, func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})
}

var (
	defaultOnce      sync.Once
	defaultValidator *validator.Validate
)

// Default returns a validator with the portal rules registered
func Default() *validator.Validate {
	defaultOnce.Do(func() {
		defaultValidator = validator.New(validator.WithRequiredStructEnabled())
		if err := Register(defaultValidator); err != nil {
			panic(err)
		}
	})
	return defaultValidator
}

// Struct validates s and flattens field errors into one readable error
func Struct(s any) error {
	err := Default().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	return Describe(fieldErrs)
}

// Describe renders validation errors as "field: problem" pairs
func Describe(fieldErrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeField(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describeField(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case StrongPasswordTag:
		if err := CheckPassword(fe.Value().(string)); err != nil {
			return err.Error()
		}
	}
	return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
}
