package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gestionpro/gestionpro/internal/core/domain"
	"github.com/gestionpro/gestionpro/internal/core/ports"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[\w.-]+@(?:[\w-]+\.)+[\w-]{2,4}$`)

// AuthService implements registration and login on top of the credential
// store, the password hasher, and the token service.
type AuthService struct {
	repo       ports.UserRepository
	tokens     ports.TokenService
	limiter    ports.LoginLimiter // nil disables throttling
	bcryptCost int
}

func NewAuthService(repo ports.UserRepository, tokens ports.TokenService, limiter ports.LoginLimiter, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{repo: repo, tokens: tokens, limiter: limiter, bcryptCost: bcryptCost}
}

func (s *AuthService) Register(ctx context.Context, name, email, password string, role domain.Role) (string, *domain.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	if name == "" || email == "" || password == "" {
		return "", nil, domain.ErrInvalidInput
	}
	if !emailPattern.MatchString(email) {
		return "", nil, domain.ErrInvalidInput
	}
	if len(password) < minPasswordLength {
		return "", nil, domain.ErrInvalidInput
	}
	if role == "" {
		role = domain.DefaultRole
	}
	if !role.Valid() {
		return "", nil, domain.ErrInvalidInput
	}

	// The plaintext stops here: only the hash reaches the repository.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(created.ID)
	if err != nil {
		return "", nil, err
	}
	return token, created, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidInput
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, email)
		if err != nil {
			return "", nil, err
		}
		if !ok {
			return "", nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Same error as a wrong password: never reveal which field failed.
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			return "", nil, err
		}
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// NormalizeEmail lowercases and trims an address so lookups and the unique
// index agree on a single canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
