package domain

import (
	"errors"
	"fmt"
)

// Provisioning failure taxonomy. Every error leaving the orchestrator
// wraps exactly one of these sentinels.
var (
	ErrEmailTaken       = errors.New("email already registered")
	ErrCredentialPolicy = errors.New("credential rejected by policy")
	ErrDuplicateUnique  = errors.New("unique constraint violated")
	ErrRejected         = errors.New("write rejected by store")
	ErrTransport        = errors.New("transport failure")
	ErrNoIdentity       = errors.New("identity platform returned no id")
	ErrCompensation     = errors.New("compensation failed")
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrRoleNotFound       = errors.New("role not found")
	ErrOperatorNotFound   = errors.New("operator not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ProvisioningStep identifies where in the flow a failure occurred.
type ProvisioningStep string

const (
	StepIssueCredential  ProvisioningStep = "issue_credential"
	StepWriteProfile     ProvisioningStep = "write_profile"
	StepWriteRoleRecord  ProvisioningStep = "write_role_record"
	StepUpdateProfile    ProvisioningStep = "update_profile"
	StepUpdateRoleRecord ProvisioningStep = "update_role_record"
	StepCompensate       ProvisioningStep = "compensate"
)

// ProvisioningError wraps a taxonomy sentinel with the step and entity it
// hit, so the API layer can render a specific message ("business code
// already in use" vs "email already registered").
type ProvisioningError struct {
	Step   ProvisioningStep
	Entity string
	Err    error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Step, e.Entity, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// NewProvisioningError builds a step-tagged wrapper around err.
func NewProvisioningError(step ProvisioningStep, entity string, err error) *ProvisioningError {
	return &ProvisioningError{Step: step, Entity: entity, Err: err}
}
