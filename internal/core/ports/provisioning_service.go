package ports

import (
	"context"

	"github.com/fieldops/console-api/internal/core/domain"
)

// ProvisionAccountInput is the draft the create flow starts from.
type ProvisionAccountInput struct {
	Email       string
	Credential  string
	DisplayName string
	Kind        domain.RoleKind
	// RoleID is optional; when empty the default role is resolved from
	// reference data by name.
	RoleID string
	Active bool
	// CreatedBy is the administrator's id, stamped on every row written.
	// The administrator's own session is never touched.
	CreatedBy string
	// AttemptKey deduplicates credential issuance across client retries of
	// the same attempt. Optional.
	AttemptKey string
	// Record carries the role-specific fields; required for kinds where
	// RequiresRoleRecord() is true, ignored otherwise.
	Record *RoleRecordInput
}

// RoleRecordInput holds the role-scoped fields supplied by the caller.
type RoleRecordInput struct {
	BusinessCode string
	DisplayName  string
	Phone        string
	Address      string
}

// UpdateAccountInput is the edit-flow patch. Nil fields are left untouched;
// email and id are immutable post-creation.
type UpdateAccountInput struct {
	ID          string
	DisplayName *string
	Active      *bool
	RoleID      *string
	Record      *RoleRecordPatch
}

// RoleRecordPatch mutates a role record's mutable fields only, never its
// identity reference or id.
type RoleRecordPatch struct {
	BusinessCode *string
	DisplayName  *string
	Phone        *string
	Address      *string
	Active       *bool
}

// AccountResult is the terminal success view of either flow.
type AccountResult struct {
	Profile *domain.Profile
	// Record is nil for kinds without a role record.
	Record *domain.RoleRecord
	// IdentityReused is true when the attempt key matched a previous
	// issuance and no new credential was created.
	IdentityReused bool
}

// ProvisioningService sequences credential issuance, profile and role-record
// writes, and compensation into one terminal outcome per request.
type ProvisioningService interface {
	ProvisionAccount(ctx context.Context, input ProvisionAccountInput) (*AccountResult, error)
	UpdateAccount(ctx context.Context, input UpdateAccountInput) (*AccountResult, error)
}
