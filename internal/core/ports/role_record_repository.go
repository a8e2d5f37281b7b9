package ports

import (
	"context"

	"github.com/fieldops/console-api/internal/core/domain"
)

// RoleRecordRepository persists seller/merchandiser records.
type RoleRecordRepository interface {
	Insert(ctx context.Context, record *domain.RoleRecord) error
	// UpdateByIdentity patches the record owned by the given identity.
	// The identity reference and id are never written.
	UpdateByIdentity(ctx context.Context, identityID string, patch RoleRecordPatch) (*domain.RoleRecord, error)
	FindByIdentity(ctx context.Context, identityID string) (*domain.RoleRecord, error)
	// DeleteByIdentity removes the record during compensation.
	DeleteByIdentity(ctx context.Context, identityID string) error
}
