package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/userdirectory/userdir-api/internal/core/domain"
	"github.com/userdirectory/userdir-api/internal/core/ports"
)

// UserHandler serves the user directory.
type UserHandler struct {
	service ports.UserService
	log     zerolog.Logger
}

func NewUserHandler(service ports.UserService, log zerolog.Logger) *UserHandler {
	return &UserHandler{service: service, log: log}
}

// List handles GET /users.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Param        search  query     string  false  "Case-insensitive match on full name"
// @Success      200     {object}  usersResponse
// @Failure      500     {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.service.ListUsers(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return err
	}
	if users == nil {
		users = []*domain.User{}
	}

	evt := h.log.Debug().Int("count", len(users))
	if v := viewer(c); v != nil {
		evt = evt.Str("viewer_id", v.UserID)
	}
	evt.Msg("directory listed")

	return c.JSON(http.StatusOK, usersResponse{
		Message: "Users fetched successfully",
		Users:   users,
		Count:   len(users),
	})
}
