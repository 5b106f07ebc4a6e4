package client

import (
	"context"
	"errors"
	"sync"
)

// State is the session lifecycle position.
type State int

const (
	// StateUninitialized means Restore has not run yet.
	StateUninitialized State = iota
	// StateLoading means an auth operation is in flight.
	StateLoading
	// StateAuthenticated means a user is present and was confirmed by a
	// successful token verification round-trip.
	StateAuthenticated
	// StateUnauthenticated means no valid session exists.
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "uninitialized"
	}
}

// Snapshot is an immutable view of the session at one point in time.
type Snapshot struct {
	State State
	User  *User
	Token string
	// Err is the user-facing message from the last failed operation.
	Err string
}

// Session is the single source of truth for client-side auth state. Only its
// own methods mutate it; everything else reads through Snapshot. Construct a
// fresh one per process (or per test) with NewSession.
type Session struct {
	client  *Client
	storage TokenStorage

	mu       sync.Mutex
	state    State
	user     *User
	token    string
	err      string
	onChange func(Snapshot)
}

type SessionOption func(*Session)

// WithOnChange registers a callback invoked after every state transition,
// outside the session lock.
func WithOnChange(fn func(Snapshot)) SessionOption {
	return func(s *Session) { s.onChange = fn }
}

// NewSession wires a session to a client and a token store. Any 401 response
// observed by the client, on any call, invalidates the session.
func NewSession(c *Client, storage TokenStorage, opts ...SessionOption) *Session {
	s := &Session{
		client:  c,
		storage: storage,
		state:   StateUninitialized,
	}
	for _, opt := range opts {
		opt(s)
	}
	c.handleUnauthorized(s.Invalidate)
	return s
}

// Snapshot returns the current session view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{State: s.state, User: s.user, Token: s.token, Err: s.err}
}

// Restore validates a previously stored token against the server. With no
// stored token, or on any validation failure, the session ends
// unauthenticated and the stored token is purged. The returned error is only
// non-nil for storage failures.
func (s *Session) Restore(ctx context.Context) error {
	token, err := s.storage.Load()
	if err != nil {
		s.set(StateUnauthenticated, nil, "", err.Error())
		return err
	}
	if token == "" {
		s.set(StateUnauthenticated, nil, "", "")
		return nil
	}

	s.client.SetToken(token)
	s.set(StateLoading, nil, token, "")

	user, err := s.client.Me(ctx)
	if err != nil {
		s.purge()
		s.set(StateUnauthenticated, nil, "", messageOf(err))
		return nil
	}

	s.set(StateAuthenticated, user, token, "")
	return nil
}

// Login opens a session with credentials. On failure the server's message is
// surfaced in the snapshot and any previously stored token is purged.
func (s *Session) Login(ctx context.Context, email, password string) error {
	s.set(StateLoading, nil, "", "")

	res, err := s.client.Login(ctx, email, password)
	if err != nil {
		s.purge()
		s.set(StateUnauthenticated, nil, "", messageOf(err))
		return err
	}
	return s.open(res)
}

// Register creates an account and opens a session, mirroring Login.
func (s *Session) Register(ctx context.Context, input RegisterInput) error {
	s.set(StateLoading, nil, "", "")

	res, err := s.client.Register(ctx, input)
	if err != nil {
		s.purge()
		s.set(StateUnauthenticated, nil, "", messageOf(err))
		return err
	}
	return s.open(res)
}

// Logout purges the stored token and drops the session. Tokens are stateless,
// so no server round-trip is needed; in-flight requests simply complete and
// their results are discarded.
func (s *Session) Logout() {
	s.purge()
	s.set(StateUnauthenticated, nil, "", "")
}

// Invalidate drops the session in response to a rejected token. Safe to call
// concurrently with in-flight requests.
func (s *Session) Invalidate() {
	s.mu.Lock()
	alreadyOut := s.state == StateUnauthenticated
	s.mu.Unlock()
	if alreadyOut {
		return
	}
	s.purge()
	s.set(StateUnauthenticated, nil, "", "session expired, please log in again")
}

func (s *Session) open(res *AuthResult) error {
	err := s.storage.Save(res.Token)
	s.client.SetToken(res.Token)
	s.set(StateAuthenticated, res.User, res.Token, "")
	return err
}

func (s *Session) purge() {
	_ = s.storage.Clear()
	s.client.SetToken("")
}

// set mutates the session under the lock and fires onChange outside of it, so
// the callback may safely call Snapshot.
func (s *Session) set(state State, user *User, token, errMsg string) {
	s.mu.Lock()
	s.state = state
	s.user = user
	s.token = token
	s.err = errMsg
	fn := s.onChange
	snap := Snapshot{State: state, User: user, Token: token, Err: errMsg}
	s.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}

func messageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
