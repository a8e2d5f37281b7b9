package domain

import "time"

const (
	// OperatorRoleAdmin is the console role allowed to provision accounts.
	OperatorRoleAdmin = "admin"
	// OperatorRoleViewer can read reference data but not create accounts.
	OperatorRoleViewer = "viewer"
)

// DefaultRoleName is resolved from reference data when a create draft
// carries no role.
const DefaultRoleName = "Seller"

// RoleKind selects the provisioning variant for a new account.
type RoleKind string

const (
	KindUser         RoleKind = "user"
	KindSeller       RoleKind = "seller"
	KindMerchandiser RoleKind = "merchandiser"
)

// Valid reports whether k is a known provisioning kind.
func (k RoleKind) Valid() bool {
	switch k {
	case KindUser, KindSeller, KindMerchandiser:
		return true
	}
	return false
}

// RequiresRoleRecord reports whether accounts of this kind carry a
// secondary role-scoped record alongside the profile.
func (k RoleKind) RequiresRoleRecord() bool {
	return k == KindSeller || k == KindMerchandiser
}

// Identity is the identity platform's record of a login credential.
// The platform owns it entirely; this system only ever sees the opaque id.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile is the console's business-facing record of a person, one per
// Identity. Its id equals the Identity id.
type Profile struct {
	ID          string    `json:"id" bson:"_id"`
	Email       string    `json:"email" bson:"email"`
	DisplayName string    `json:"display_name" bson:"display_name"`
	RoleID      string    `json:"role_id" bson:"role_id"`
	Active      bool      `json:"active" bson:"active"`
	CreatedBy   string    `json:"created_by" bson:"created_by"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Role is reference data, read-only to this subsystem.
type Role struct {
	ID   string `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
}

// RoleRecord is a role-specific record (seller or merchandiser) carrying
// the business fields the profile does not. IdentityID is nullable: a
// record can pre-date or outlive its identity in edit flows.
type RoleRecord struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	Kind         RoleKind  `json:"kind" bson:"kind"`
	BusinessCode string    `json:"business_code" bson:"business_code"`
	DisplayName  string    `json:"display_name" bson:"display_name"`
	Phone        string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Address      string    `json:"address,omitempty" bson:"address,omitempty"`
	Active       bool      `json:"active" bson:"active"`
	IdentityID   *string   `json:"identity_id,omitempty" bson:"identity_id,omitempty"`
	CreatedBy    string    `json:"created_by" bson:"created_by"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// Operator is a console administrator account, authenticated locally.
type Operator struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
