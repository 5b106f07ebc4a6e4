package ports

import (
	"context"

	"github.com/gestionpro/gestionpro/internal/core/domain"
)

// UserRepository defines the interface for credential persistence.
//
// FindByEmail returns the stored password hash because it backs login
// verification; FindByID never loads the hash.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}
