package domain

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrIncorrectPassword  = errors.New("current password is incorrect")
	ErrUserExists         = errors.New("user with this email already exists")
	ErrUserNotFound       = errors.New("user not found")
)

// SignupErrors holds one optional message per signup input.
type SignupErrors struct {
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	Email           string `json:"email,omitempty"`
	Password        string `json:"password,omitempty"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
	Terms           string `json:"terms,omitempty"`
}

// Empty reports whether no field carries an error.
func (e SignupErrors) Empty() bool {
	return e == SignupErrors{}
}

// First returns the first message in form order.
func (e SignupErrors) First() string {
	for _, msg := range []string{e.FirstName, e.LastName, e.Email, e.Password, e.ConfirmPassword, e.Terms} {
		if msg != "" {
			return msg
		}
	}
	return ""
}

// ValidationError is returned when input is rejected before any store access.
// Fields is set only for signup.
type ValidationError struct {
	Message string
	Fields  *SignupErrors
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }
