package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type roleRecordRequest struct {
	BusinessCode string `json:"business_code" validate:"required"`
	DisplayName  string `json:"display_name"  validate:"required"`
	Phone        string `json:"phone"         validate:"omitempty,min=7"`
	Address      string `json:"address"       validate:"omitempty"`
}

type createAccountRequest struct {
	Email       string             `json:"email"        validate:"required,email"`
	Credential  string             `json:"credential"   validate:"required,min=8"`
	DisplayName string             `json:"display_name" validate:"required"`
	Kind        string             `json:"kind"         validate:"required,oneof=user seller merchandiser"`
	RoleID      string             `json:"role_id"      validate:"omitempty"`
	Active      *bool              `json:"active"       validate:"omitempty"`
	Record      *roleRecordRequest `json:"record"       validate:"omitempty"`
}

type updateRoleRecordRequest struct {
	BusinessCode *string `json:"business_code"`
	DisplayName  *string `json:"display_name"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	Active       *bool   `json:"active"`
}

type updateAccountRequest struct {
	DisplayName *string                  `json:"display_name"`
	Active      *bool                    `json:"active"`
	RoleID      *string                  `json:"role_id"`
	Record      *updateRoleRecordRequest `json:"record"`
}

type profileResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	RoleID      string `json:"role_id"`
	Active      bool   `json:"active"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at"`
}

type roleRecordResponse struct {
	ID           string  `json:"id"`
	Kind         string  `json:"kind"`
	BusinessCode string  `json:"business_code"`
	DisplayName  string  `json:"display_name"`
	Phone        string  `json:"phone,omitempty"`
	Address      string  `json:"address,omitempty"`
	Active       bool    `json:"active"`
	IdentityID   *string `json:"identity_id,omitempty"`
}

type accountResponse struct {
	Profile        profileResponse     `json:"profile"`
	Record         *roleRecordResponse `json:"record,omitempty"`
	IdentityReused bool                `json:"identity_reused,omitempty"`
}

type roleResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
