package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/userdirectory/userdir-api/internal/api/middleware"
	"github.com/userdirectory/userdir-api/internal/core/domain"
)

// viewer returns the identity the route guard attached to the request, or
// nil when the request is anonymous. The guard only enriches; handlers that
// read it must tolerate nil.
func viewer(c echo.Context) *domain.Claims {
	claims, _ := middleware.ClaimsFromContext(c.Request().Context())
	return claims
}
