package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fieldops/console-api/internal/core/ports"
)

// RoleHandler serves role reference data for the account forms.
type RoleHandler struct {
	roles ports.RoleRepository
}

func NewRoleHandler(roles ports.RoleRepository) *RoleHandler {
	return &RoleHandler{roles: roles}
}

// List handles GET /v1/roles.
//
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   roleResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/roles [get]
func (h *RoleHandler) List(c echo.Context) error {
	roles, err := h.roles.List(c.Request().Context())
	if err != nil {
		return err
	}

	out := make([]roleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, roleResponse{ID: r.ID, Name: r.Name})
	}
	return c.JSON(http.StatusOK, out)
}
