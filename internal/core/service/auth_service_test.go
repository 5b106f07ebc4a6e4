package service

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gestionpro/gestionpro/internal/core/domain"
)

type stubUserRepo struct {
	users  map[string]*domain.User // keyed by email
	nextID int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, exists := r.users[user.Email]; exists {
		return nil, domain.ErrUserExists
	}
	copy := cloneUser(user)
	r.nextID++
	copy.ID = string(rune('a' + r.nextID))
	r.users[copy.Email] = cloneUser(copy)
	return cloneUser(copy), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := r.users[email]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			out := cloneUser(u)
			out.PasswordHash = ""
			return out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func newTestAuthService(repo *stubUserRepo) *AuthService {
	tokens := NewTokenService("secret", time.Hour)
	return NewAuthService(repo, tokens, nil, bcrypt.MinCost)
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(repo)

	token, user, err := svc.Register(context.Background(), "Alice Martin", "Alice@Example.com", "secret1", "")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token, got empty")
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %s", user.Email)
	}
	if user.Role != domain.RoleSeller {
		t.Fatalf("expected default role seller, got %s", user.Role)
	}
	if !user.Active {
		t.Fatalf("expected new user to be active")
	}
	if user.PasswordHash == "secret1" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newTestAuthService(newStubUserRepo())
	ctx := context.Background()

	cases := []struct {
		name, nom, email, password string
		role                       domain.Role
	}{
		{"missing name", "", "a@example.com", "secret1", ""},
		{"missing email", "Alice", "", "secret1", ""},
		{"missing password", "Alice", "a@example.com", "", ""},
		{"malformed email", "Alice", "not-an-email", "secret1", ""},
		{"short password", "Alice", "a@example.com", "abc", ""},
		{"unknown role", "Alice", "a@example.com", "secret1", "manager"},
	}

	for _, tc := range cases {
		if _, _, err := svc.Register(ctx, tc.nom, tc.email, tc.password, tc.role); err != domain.ErrInvalidInput {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc := newTestAuthService(newStubUserRepo())
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "Bob", "bob@example.com", "secret1", domain.RoleAdmin); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, _, err := svc.Register(ctx, "Bobby", "BOB@example.com", "secret2", ""); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestAuthService(repo)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "Carol", "carol@example.com", "s3cret1", domain.RoleAccountant); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, user, err := svc.Login(ctx, "Carol@Example.com", "s3cret1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token, got empty")
	}
	if user.Role != domain.RoleAccountant {
		t.Fatalf("unexpected role: %s", user.Role)
	}

	// The issued token must verify and identify the same user.
	tokens := NewTokenService("secret", time.Hour)
	userID, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	if userID != user.ID {
		t.Fatalf("token subject %s does not match user %s", userID, user.ID)
	}
}

func TestAuthService_Login_GenericFailure(t *testing.T) {
	svc := newTestAuthService(newStubUserRepo())
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "Dave", "dave@example.com", "goodpass", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Wrong password and unknown email must be indistinguishable.
	_, _, wrongPass := svc.Login(ctx, "dave@example.com", "badpass")
	_, _, noUser := svc.Login(ctx, "ghost@example.com", "whatever")

	if wrongPass != domain.ErrInvalidCredentials {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", wrongPass)
	}
	if noUser != domain.ErrInvalidCredentials {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", noUser)
	}
	if wrongPass.Error() != noUser.Error() {
		t.Fatalf("messages differ: %q vs %q", wrongPass, noUser)
	}
}

func TestAuthService_Login_MissingFields(t *testing.T) {
	svc := newTestAuthService(newStubUserRepo())

	if _, _, err := svc.Login(context.Background(), "", "pass"); err != domain.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "a@example.com", ""); err != domain.ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

type stubLimiter struct {
	remaining int
	resets    int
}

func (l *stubLimiter) Allow(context.Context, string) (bool, error) {
	if l.remaining <= 0 {
		return false, nil
	}
	l.remaining--
	return true, nil
}

func (l *stubLimiter) Reset(context.Context, string) error {
	l.resets++
	return nil
}

func TestAuthService_Login_Throttled(t *testing.T) {
	repo := newStubUserRepo()
	limiter := &stubLimiter{remaining: 1}
	svc := NewAuthService(repo, NewTokenService("secret", time.Hour), limiter, bcrypt.MinCost)
	ctx := context.Background()

	if _, _, err := newTestAuthService(repo).Register(ctx, "Eve", "eve@example.com", "secret1", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, _, err := svc.Login(ctx, "eve@example.com", "wrong"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "eve@example.com", "secret1"); err != domain.ErrTooManyAttempts {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestAuthService_Login_ResetsLimiter(t *testing.T) {
	repo := newStubUserRepo()
	limiter := &stubLimiter{remaining: 5}
	svc := NewAuthService(repo, NewTokenService("secret", time.Hour), limiter, bcrypt.MinCost)
	ctx := context.Background()

	if _, _, err := newTestAuthService(repo).Register(ctx, "Frank", "frank@example.com", "secret1", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, _, err := svc.Login(ctx, "frank@example.com", "secret1"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if limiter.resets != 1 {
		t.Fatalf("expected limiter reset after successful login, got %d", limiter.resets)
	}
}
