package ports

import (
	"context"

	"github.com/fieldops/console-api/internal/core/domain"
)

// ProfilePatch holds the mutable profile fields for the edit flow.
// Nil fields are not written.
type ProfilePatch struct {
	DisplayName *string
	Active      *bool
	RoleID      *string
}

// ProfileRepository persists business profiles keyed by identity id.
type ProfileRepository interface {
	Insert(ctx context.Context, profile *domain.Profile) error
	Update(ctx context.Context, id string, patch ProfilePatch) (*domain.Profile, error)
	FindByID(ctx context.Context, id string) (*domain.Profile, error)
	// Delete removes a profile during compensation of a failed attempt.
	Delete(ctx context.Context, id string) error
}
