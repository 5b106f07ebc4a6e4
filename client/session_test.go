package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeAPI mimics the auth endpoints: one registered user, one valid token.
type fakeAPI struct {
	mu         sync.Mutex
	validToken string
	user       User
	emails     map[string]string // email → password
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		validToken: "tok-valid",
		user:       User{ID: "u1", Name: "Alice", Email: "alice@example.com", Role: "seller", Active: true},
		emails:     map[string]string{"alice@example.com": "secret1"},
	}
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.emails[body["email"]] != body["password"] || body["password"] == "" {
			writeFail(w, http.StatusUnauthorized, "incorrect email or password")
			return
		}
		writeAuth(w, http.StatusOK, f.validToken, f.user)
	})
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body RegisterInput
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, exists := f.emails[body.Email]; exists {
			writeFail(w, http.StatusConflict, "this email address is already in use")
			return
		}
		f.emails[body.Email] = body.Password
		user := User{ID: "u2", Name: body.Name, Email: body.Email, Role: "seller", Active: true}
		writeAuth(w, http.StatusCreated, f.validToken, user)
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer "+f.validToken {
			writeFail(w, http.StatusUnauthorized, "invalid or expired token, please log in again")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   map[string]any{"user": f.user},
		})
	})
	return mux
}

// expireToken makes every previously issued token invalid.
func (f *fakeAPI) expireToken() {
	f.mu.Lock()
	f.validToken = "tok-rotated"
	f.mu.Unlock()
}

func writeAuth(w http.ResponseWriter, code int, token string, user User) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "success",
		"token":  token,
		"data":   map[string]any{"user": user},
	})
}

func writeFail(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "fail", "message": message})
}

func newTestSession(t *testing.T, api *fakeAPI) (*Session, *MemoryTokenStorage) {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	storage := NewMemoryTokenStorage()
	return NewSession(New(srv.URL), storage), storage
}

func TestSession_Restore_NoToken(t *testing.T) {
	s, _ := newTestSession(t, newFakeAPI())

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("restore error: %v", err)
	}
	snap := s.Snapshot()
	if snap.State != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", snap.State)
	}
	if snap.Err != "" {
		t.Fatalf("no stored token is not an error: %q", snap.Err)
	}
}

func TestSession_Restore_ValidToken(t *testing.T) {
	api := newFakeAPI()
	s, storage := newTestSession(t, api)
	_ = storage.Save(api.validToken)

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("restore error: %v", err)
	}
	snap := s.Snapshot()
	if snap.State != StateAuthenticated {
		t.Fatalf("expected authenticated, got %v", snap.State)
	}
	if snap.User == nil || snap.User.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", snap.User)
	}
}

func TestSession_Restore_ExpiredToken(t *testing.T) {
	api := newFakeAPI()
	s, storage := newTestSession(t, api)
	_ = storage.Save("tok-expired")

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("restore error: %v", err)
	}
	snap := s.Snapshot()
	if snap.State != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", snap.State)
	}

	// The invalid token must be purged from storage.
	if tok, _ := storage.Load(); tok != "" {
		t.Fatalf("expected purged storage, found %q", tok)
	}
}

func TestSession_Login_Success(t *testing.T) {
	api := newFakeAPI()
	s, storage := newTestSession(t, api)

	if err := s.Login(context.Background(), "alice@example.com", "secret1"); err != nil {
		t.Fatalf("login error: %v", err)
	}
	snap := s.Snapshot()
	if snap.State != StateAuthenticated || snap.Token != api.validToken {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if tok, _ := storage.Load(); tok != api.validToken {
		t.Fatalf("token not persisted, found %q", tok)
	}
}

func TestSession_Login_BadCredentials(t *testing.T) {
	s, storage := newTestSession(t, newFakeAPI())
	_ = storage.Save("tok-stale")

	err := s.Login(context.Background(), "alice@example.com", "wrong")
	if err == nil {
		t.Fatalf("expected login error")
	}
	snap := s.Snapshot()
	if snap.State != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", snap.State)
	}
	// The server's message is surfaced as-is for the UI layer.
	if snap.Err != "incorrect email or password" {
		t.Fatalf("unexpected error message: %q", snap.Err)
	}
	if tok, _ := storage.Load(); tok != "" {
		t.Fatalf("stale token must be purged, found %q", tok)
	}
}

func TestSession_Register_Duplicate(t *testing.T) {
	s, _ := newTestSession(t, newFakeAPI())

	err := s.Register(context.Background(), RegisterInput{
		Name: "Alice Two", Email: "alice@example.com", Password: "secret2",
	})
	if err == nil {
		t.Fatalf("expected register error")
	}
	snap := s.Snapshot()
	if snap.State != StateUnauthenticated || snap.Err != "this email address is already in use" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestSession_Register_Success(t *testing.T) {
	s, storage := newTestSession(t, newFakeAPI())

	err := s.Register(context.Background(), RegisterInput{
		Name: "Bob", Email: "bob@example.com", Password: "secret1",
	})
	if err != nil {
		t.Fatalf("register error: %v", err)
	}
	if s.Snapshot().State != StateAuthenticated {
		t.Fatalf("expected authenticated")
	}
	if tok, _ := storage.Load(); tok == "" {
		t.Fatalf("token not persisted")
	}
}

func TestSession_Logout(t *testing.T) {
	api := newFakeAPI()
	s, storage := newTestSession(t, api)

	if err := s.Login(context.Background(), "alice@example.com", "secret1"); err != nil {
		t.Fatalf("login error: %v", err)
	}

	s.Logout()

	snap := s.Snapshot()
	if snap.State != StateUnauthenticated || snap.User != nil || snap.Token != "" {
		t.Fatalf("unexpected snapshot after logout: %+v", snap)
	}
	if tok, _ := storage.Load(); tok != "" {
		t.Fatalf("expected purged storage, found %q", tok)
	}
}

func TestSession_AnyUnauthorizedResponseInvalidates(t *testing.T) {
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	c := New(srv.URL)
	storage := NewMemoryTokenStorage()
	s := NewSession(c, storage)

	if err := s.Login(context.Background(), "alice@example.com", "secret1"); err != nil {
		t.Fatalf("login error: %v", err)
	}

	// The server stops accepting the token; the next call, from any caller,
	// must drop the session.
	api.expireToken()
	if _, err := c.Me(context.Background()); err == nil {
		t.Fatalf("expected me to fail")
	}

	snap := s.Snapshot()
	if snap.State != StateUnauthenticated {
		t.Fatalf("expected unauthenticated after 401, got %v", snap.State)
	}
	if tok, _ := storage.Load(); tok != "" {
		t.Fatalf("expected purged storage, found %q", tok)
	}
}

func TestSession_OnChange(t *testing.T) {
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	var mu sync.Mutex
	var states []State
	s := NewSession(New(srv.URL), NewMemoryTokenStorage(), WithOnChange(func(snap Snapshot) {
		mu.Lock()
		states = append(states, snap.State)
		mu.Unlock()
	}))

	if err := s.Login(context.Background(), "alice@example.com", "secret1"); err != nil {
		t.Fatalf("login error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 || states[0] != StateLoading || states[1] != StateAuthenticated {
		t.Fatalf("unexpected transitions: %v", states)
	}
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"user":{"id":"u1"}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok-abc")
	if _, err := c.Me(context.Background()); err != nil {
		t.Fatalf("me error: %v", err)
	}
	if !strings.HasPrefix(seen, "Bearer tok-abc") {
		t.Fatalf("token not attached, got %q", seen)
	}
}
