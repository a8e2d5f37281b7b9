package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fieldops/console-api/internal/core/domain"
	"github.com/fieldops/console-api/internal/core/ports"
)

// AccountHandler exposes the provisioning flows over HTTP. The can-create
// gate is enforced by the RBAC middleware in front of it; the service
// itself trusts its caller.
type AccountHandler struct {
	service ports.ProvisioningService
}

func NewAccountHandler(service ports.ProvisioningService) *AccountHandler {
	return &AccountHandler{service: service}
}

// Create handles POST /v1/accounts.
//
// @Summary      Provision a field staff account
// @Description  Creates the identity in the identity platform plus the profile (and role record for seller/merchandiser kinds). Retries with the same Idempotency-Key reuse the issued identity.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string                false  "Attempt key to prevent duplicate credential issuance"
// @Param        body             body      createAccountRequest  true   "Account draft"
// @Success      201              {object}  accountResponse
// @Failure      400              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Failure      502              {object}  errorResponse
// @Router       /v1/accounts [post]
func (h *AccountHandler) Create(c echo.Context) error {
	var req createAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	operatorID, _, err := ctxOperator(c)
	if err != nil {
		return err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	input := ports.ProvisionAccountInput{
		Email:       req.Email,
		Credential:  req.Credential,
		DisplayName: req.DisplayName,
		Kind:        domain.RoleKind(req.Kind),
		RoleID:      req.RoleID,
		Active:      active,
		CreatedBy:   operatorID,
		AttemptKey:  c.Request().Header.Get("Idempotency-Key"),
	}
	if req.Record != nil {
		input.Record = &ports.RoleRecordInput{
			BusinessCode: req.Record.BusinessCode,
			DisplayName:  req.Record.DisplayName,
			Phone:        req.Record.Phone,
			Address:      req.Record.Address,
		}
	}

	result, err := h.service.ProvisionAccount(c.Request().Context(), input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toAccountResponse(result))
}

// Update handles PATCH /v1/accounts/:id.
//
// @Summary      Update an account's profile and role record
// @Description  Edits mutable fields only; email and id are immutable and no identity platform call is made.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "Identity id"
// @Param        body  body      updateAccountRequest  true  "Fields to change"
// @Success      200   {object}  accountResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/accounts/{id} [patch]
func (h *AccountHandler) Update(c echo.Context) error {
	var req updateAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	if _, _, err := ctxOperator(c); err != nil {
		return err
	}

	input := ports.UpdateAccountInput{
		ID:          c.Param("id"),
		DisplayName: req.DisplayName,
		Active:      req.Active,
		RoleID:      req.RoleID,
	}
	if req.Record != nil {
		input.Record = &ports.RoleRecordPatch{
			BusinessCode: req.Record.BusinessCode,
			DisplayName:  req.Record.DisplayName,
			Phone:        req.Record.Phone,
			Address:      req.Record.Address,
			Active:       req.Record.Active,
		}
	}

	result, err := h.service.UpdateAccount(c.Request().Context(), input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toAccountResponse(result))
}

func toAccountResponse(result *ports.AccountResult) accountResponse {
	resp := accountResponse{
		Profile: profileResponse{
			ID:          result.Profile.ID,
			Email:       result.Profile.Email,
			DisplayName: result.Profile.DisplayName,
			RoleID:      result.Profile.RoleID,
			Active:      result.Profile.Active,
			CreatedBy:   result.Profile.CreatedBy,
			CreatedAt:   result.Profile.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
		IdentityReused: result.IdentityReused,
	}
	if result.Record != nil {
		resp.Record = &roleRecordResponse{
			ID:           result.Record.ID,
			Kind:         string(result.Record.Kind),
			BusinessCode: result.Record.BusinessCode,
			DisplayName:  result.Record.DisplayName,
			Phone:        result.Record.Phone,
			Address:      result.Record.Address,
			Active:       result.Record.Active,
			IdentityID:   result.Record.IdentityID,
		}
	}
	return resp
}
