// Package validation defines the login and contact form schemas
package validation

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/findosh/contactdesk/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// MinPhoneDigits is the minimum number of digits in a phone number
const MinPhoneDigits = 10

// FieldErrors maps a form field (JSON name) to its error message.
// It is the ValidationError of the application.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + fe[f]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field has an error
func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

// Result is either a normalized payload (Errors empty) or field errors
type Result[T any] struct {
	Value  T
	Errors FieldErrors
}

// OK reports whether validation passed
func (r Result[T]) OK() bool {
	return len(r.Errors) == 0
}

// Err returns Errors as an error, or nil when validation passed
func (r Result[T]) Err() error {
	if r.OK() {
		return nil
	}
	return r.Errors
}

// LoginForm is the login payload
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// messages holds the human readable message per field and failing rule
var messages = map[string]map[string]string{
	"email": {
		"required": "Email is required",
		"email":    "Please enter a valid email address",
	},
	"password": {
		"required": "Password is required",
		"min":      "Password is required",
	},
	"fullName": {
		"required": "Full name is required",
		"min":      "Full name must be at least 2 characters",
	},
	"phoneNumber": {
		"required": "Phone number is required",
		"phone":    "Phone number must contain at least 10 digits",
	},
	"subject": {
		"required": "Subject is required",
	},
	"message": {
		"required": "Message is required",
		"notblank": "Message is required",
		"min":      "Message must be at least 10 characters",
	},
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func engine() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonFieldName)
		if err := v.RegisterValidation("phone", validPhone); err != nil {
			panic(err)
		}
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(err)
		}
		validate = v
	})
	return validate
}

// ValidateLogin checks a login payload. The email is trimmed but kept
// case-sensitive because the credential check is an exact match.
func ValidateLogin(form LoginForm) Result[LoginForm] {
	form.Email = strings.TrimSpace(form.Email)
	return check(form)
}

// ValidateContact checks a contact payload. Single-line fields are trimmed
// and the email is lowercased. The message is kept as typed: its length
// counts every character, and a whitespace-only message is missing.
func ValidateContact(input models.SubmissionInput) Result[models.SubmissionInput] {
	input.FullName = strings.TrimSpace(input.FullName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	input.Subject = strings.TrimSpace(input.Subject)
	return check(input)
}

func check[T any](value T) Result[T] {
	err := engine().Struct(value)
	if err == nil {
		return Result[T]{Value: value}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError only happens for non-struct input
		panic(err)
	}

	fe := make(FieldErrors, len(verrs))
	for _, e := range verrs {
		field := e.Field()
		if fe.Has(field) {
			continue
		}
		fe[field] = message(field, e.Tag())
	}
	return Result[T]{Value: value, Errors: fe}
}

func message(field, tag string) string {
	if msg, ok := messages[field][tag]; ok {
		return msg
	}
	return "Invalid value"
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// validPhone accepts digits and common separators with at least
// MinPhoneDigits digits.
func validPhone(fl validator.FieldLevel) bool {
	return CountPhoneDigits(fl.Field().String()) >= MinPhoneDigits
}

// CountPhoneDigits returns the number of digits in s, or -1 when s contains
// anything other than digits and separators.
func CountPhoneDigits(s string) int {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune(" -.()+", r):
		default:
			return -1
		}
	}
	return digits
}
