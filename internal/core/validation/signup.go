// Package validation holds the input rule sets of the auth flows.
package validation

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/userdirectory/userdir-api/internal/core/domain"
	"github.com/userdirectory/userdir-api/internal/core/ports"
)

const MinPasswordLength = 6

var validate = validator.New(validator.WithRequiredStructEnabled())

type signupForm struct {
	FirstName       string `validate:"required"`
	LastName        string `validate:"required"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=6"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
	Terms           bool   `validate:"required"`
}

// signupMessages maps field -> tag -> message.
var signupMessages = map[string]map[string]string{
	"FirstName": {"required": "First name is required"},
	"LastName":  {"required": "Last name is required"},
	"Email": {
		"required": "Email is required",
		"email":    "Enter a valid email",
	},
	"Password": {
		"required": "Password is required",
		"min":      "Password must be at least 6 characters",
	},
	"ConfirmPassword": {
		"required": "Please confirm your password",
		"eqfield":  "Passwords do not match",
	},
	"Terms": {"required": "You must accept the terms"},
}

// Signup validates a signup form. Names and email are trimmed before the
// rules run; the returned error is a *domain.ValidationError with Fields set.
func Signup(in ports.SignupInput) error {
	form := signupForm{
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		Email:           strings.TrimSpace(in.Email),
		Password:        in.Password,
		ConfirmPassword: in.ConfirmPassword,
		Terms:           in.Terms,
	}

	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	var fields domain.SignupErrors
	for _, fe := range ve {
		msg := signupMessages[fe.StructField()][fe.Tag()]
		if msg == "" {
			msg = strings.ToLower(fe.Field()) + " is invalid"
		}
		switch fe.StructField() {
		case "FirstName":
			fields.FirstName = msg
		case "LastName":
			fields.LastName = msg
		case "Email":
			fields.Email = msg
		case "Password":
			fields.Password = msg
		case "ConfirmPassword":
			fields.ConfirmPassword = msg
		case "Terms":
			fields.Terms = msg
		}
	}
	return &domain.ValidationError{Message: fields.First(), Fields: &fields}
}

// NewPassword checks the length rule applied on password change.
func NewPassword(password string) error {
	if err := validate.Var(password, "min=6"); err != nil {
		return domain.NewValidationError("New password must be at least 6 characters")
	}
	return nil
}
