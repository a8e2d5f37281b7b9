package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fieldops/console-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps the provisioning failure taxonomy to deterministic HTTP codes.
//   - Renders entity-specific messages (duplicate email vs duplicate
//     business code) from the step/entity carried by ProvisioningError.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var perr *domain.ProvisioningError
	entity := ""
	if errors.As(err, &perr) {
		entity = perr.Entity
	}

	// Known domain errors → deterministic HTTP codes and specific messages.
	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, "email already registered"
	case errors.Is(err, domain.ErrDuplicateUnique):
		if entity == "role_record" {
			return http.StatusConflict, "business code already in use"
		}
		return http.StatusConflict, "duplicate value for a unique field"
	case errors.Is(err, domain.ErrCredentialPolicy):
		return http.StatusUnprocessableEntity, "credential rejected by policy"
	case errors.Is(err, domain.ErrRejected):
		return http.StatusUnprocessableEntity, fmt.Sprintf("write rejected (%s)", entityOrUnknown(entity))
	case errors.Is(err, domain.ErrNoIdentity):
		return http.StatusBadGateway, "identity platform returned no usable id"
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway, "upstream service unavailable"
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "account not found"
	case errors.Is(err, domain.ErrRoleNotFound):
		return http.StatusUnprocessableEntity, "role not found"
	case errors.Is(err, domain.ErrOperatorNotFound):
		return http.StatusNotFound, "operator not found"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

func entityOrUnknown(entity string) string {
	if entity == "" {
		return "store"
	}
	return entity
}
