package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// errInvalidRequest is returned by Validate for any failed rule. Handlers
// answer it with a fixed, flow-specific message.
var errInvalidRequest = errors.New("invalid request")

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
func NewValidator() *echoValidator {
	return &echoValidator{v: validator.New()}
}

// Validate satisfies the echo.Validator interface.
func (ev *echoValidator) Validate(i any) error {
	if err := ev.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return errInvalidRequest
		}
		return err
	}
	return nil
}
