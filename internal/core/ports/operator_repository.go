package ports

import (
	"context"

	"github.com/fieldops/console-api/internal/core/domain"
)

// OperatorRepository persists console operator accounts.
type OperatorRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Operator, error)
}

// AuthService authenticates console operators.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *domain.Operator, error)
}
