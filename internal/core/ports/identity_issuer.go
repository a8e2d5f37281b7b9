package ports

import "context"

// IdentityIssuer registers new credentials with the remote identity
// platform. Implementations must perform every call through a scoped,
// throwaway session so the caller's shared session is never read or
// written — issuing a credential must not replace the operator's login.
type IdentityIssuer interface {
	// IssueCredential creates the identity and returns its opaque id.
	// Exactly one durable write happens on success, none on failure.
	IssueCredential(ctx context.Context, email, credential string) (string, error)
}
