package session

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/diatrack-dev/diatrack/internal/cli/client"
)

// ErrConnect is raised when a login attempt never reached the server.
const connectMessage = "Unable to connect to the server. Please try again."

// Gateway is the slice of the API client the store depends on.
type Gateway interface {
	GetSession() (*client.SessionResponse, error)
	Login(username, password string) (*client.LoginResponse, error)
	Logout() error
}

// Store is the single source of truth for "is the viewer logged in".
// It holds the current user (nil when unauthenticated) and a loading
// flag that is true only until the initial session check resolves.
//
// Only CheckAuth, Login and Logout mutate the store. The three
// operations are serialized through an operation mutex, so a logout
// issued during an in-flight check cannot interleave with it.
type Store struct {
	gateway Gateway

	opMu sync.Mutex // serializes CheckAuth/Login/Logout

	mu      sync.RWMutex
	user    *client.User
	loading bool

	subMu       sync.Mutex
	subscribers []chan struct{}
}

// New creates a store and kicks off the initial session check in the
// background. Until that check resolves, Loading reports true.
func New(gateway Gateway) *Store {
	s := NewIdle(gateway)
	go s.CheckAuth(context.Background())
	return s
}

// NewIdle creates a store without running the initial session check.
// The caller is expected to invoke CheckAuth itself.
func NewIdle(gateway Gateway) *Store {
	return &Store{
		gateway: gateway,
		loading: true,
	}
}

// User returns the current authenticated user, or nil
func (s *Store) User() *client.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Loading reports whether the initial session check is still pending
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Subscribe returns a channel that receives a signal after every state
// change. The channel is buffered; a slow consumer coalesces signals.
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.subMu.Unlock()
	return ch
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) setState(user *client.User, loading bool) {
	s.mu.Lock()
	s.user = user
	s.loading = loading
	s.mu.Unlock()
	s.notify()
}

// CheckAuth asks the server who the current session belongs to. Any
// failure (transport, non-2xx, authenticated=false) resolves to an
// unauthenticated state; the loading flag always clears.
func (s *Store) CheckAuth(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.checkAuthLocked(ctx)
}

// checkAuthLocked is CheckAuth without the operation lock. Callers must
// hold opMu.
func (s *Store) checkAuthLocked(ctx context.Context) {
	resp, err := s.gateway.GetSession()
	if err != nil || resp == nil || !resp.Authenticated || resp.User == nil {
		s.setState(nil, false)
		return
	}
	s.setState(resp.User, false)
}

// Login authenticates against the server. On success the user is
// refreshed from the session endpoint rather than trusted from the
// login response. On failure the store is left untouched and the
// returned error carries the most specific message available: the
// server's message, then its error field, then a generic connectivity
// message when no response was received, then the raw transport error.
func (s *Store) Login(ctx context.Context, username, password string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	resp, err := s.gateway.Login(username, password)
	if err != nil {
		return shapeLoginError(err)
	}
	if !resp.Success {
		if resp.Message != "" {
			return errors.New(resp.Message)
		}
		return errors.New("login failed")
	}

	// Refresh under the same lock so a concurrent Logout cannot slot in
	// between the login call and the session read.
	s.checkAuthLocked(ctx)
	return nil
}

// Logout ends the session. The server call is best-effort: whatever it
// returns, the local user is cleared.
func (s *Store) Logout(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	_ = s.gateway.Logout() // server is the authority; local state clears regardless

	s.setState(nil, false)
}

func shapeLoginError(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return errors.New(apiErr.Message)
		}
		return apiErr
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// No response was received at all
		return errors.New(connectMessage)
	}
	return err
}
