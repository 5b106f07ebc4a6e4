package ports

import (
	"context"

	"github.com/gestionpro/gestionpro/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, name, email, password string, role domain.Role) (string, *domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}

// LoginLimiter throttles repeated login attempts per email.
type LoginLimiter interface {
	// Allow reports whether another attempt for email may proceed.
	Allow(ctx context.Context, email string) (bool, error)
	// Reset clears the attempt counter after a successful login.
	Reset(ctx context.Context, email string) error
}
