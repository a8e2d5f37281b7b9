package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fieldops/console-api/internal/api/middleware"
)

// ctxOperator extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any service call: the operator id and
// role must both be present (presence proves the middleware ran). The id
// is what gets stamped as created-by on every row a flow writes; the
// operator's session itself is never handed further down.
func ctxOperator(c echo.Context) (operatorID, role string, err error) {
	operatorID, _ = c.Get(middleware.CtxOperatorID).(string)
	if operatorID == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	role, _ = c.Get(middleware.CtxRole).(string)
	if role == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "token missing role")
	}

	return operatorID, role, nil
}
