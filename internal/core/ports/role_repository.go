package ports

import (
	"context"

	"github.com/fieldops/console-api/internal/core/domain"
)

// RoleRepository reads role reference data. Read-only to this subsystem.
type RoleRepository interface {
	FindByName(ctx context.Context, name string) (*domain.Role, error)
	List(ctx context.Context) ([]*domain.Role, error)
}
