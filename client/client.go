// Package client is the Go client for the GestionPro API. It wraps the auth
// endpoints, attaches the session token to every outbound request, and keeps
// a single source of truth for client-side session state (see Session).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// User is the client-side view of an account. The backend never serializes
// the password hash, so there is no field for it here.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"nom"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active bool   `json:"actif"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Client performs HTTP calls against the API. It is safe for concurrent use;
// the token is attached automatically once set.
type Client struct {
	baseURL string
	httpc   *http.Client

	mu             sync.RWMutex
	token          string
	onUnauthorized func()
}

type Option func(*Client)

func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the token attached to subsequent requests. An empty
// string detaches it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the currently attached token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// handleUnauthorized registers the callback fired whenever any response comes
// back 401, independent of which call triggered it.
func (c *Client) handleUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// AuthResult is the successful outcome of Login or Register.
type AuthResult struct {
	Token string
	User  *User
}

// RegisterInput carries the registration fields. Role may be empty; the
// server then assigns the default role.
type RegisterInput struct {
	Name     string `json:"nom"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Register creates an account and returns the opened session.
func (c *Client) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/auth/register", input)
	if err != nil {
		return nil, err
	}
	return authResult(env)
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	env, err := c.do(ctx, http.MethodPost, "/api/auth/login", body)
	if err != nil {
		return nil, err
	}
	return authResult(env)
}

// Me returns the user the attached token belongs to. It is the round-trip
// that validates a stored token on application start.
func (c *Client) Me(ctx context.Context) (*User, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/auth/me", nil)
	if err != nil {
		return nil, err
	}
	if env.Data == nil || env.Data.User == nil {
		return nil, fmt.Errorf("malformed response: missing user")
	}
	return env.Data.User, nil
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Token   string `json:"token"`
	Data    *struct {
		User *User `json:"user"`
	} `json:"data"`
}

func authResult(env *envelope) (*AuthResult, error) {
	if env.Token == "" || env.Data == nil || env.Data.User == nil {
		return nil, fmt.Errorf("malformed response: missing token or user")
	}
	return &AuthResult{Token: env.Token, User: env.Data.User}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	// Tolerate an undecodable body: the status code still drives the outcome.
	_ = json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode == http.StatusUnauthorized {
		c.mu.RLock()
		fn := c.onUnauthorized
		c.mu.RUnlock()
		if fn != nil {
			fn()
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     env.Status,
			Message:    env.Message,
		}
	}
	return &env, nil
}
