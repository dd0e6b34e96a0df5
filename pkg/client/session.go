package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

const subscriberBuffer = 16

// ErrNotAuthenticated is returned by operations that need a logged-in session.
var ErrNotAuthenticated = errors.New("not authenticated")

// EventKind names an auth-state transition.
type EventKind string

const (
	EventLogin           EventKind = "login"
	EventLogout          EventKind = "logout"
	EventPasswordUpdated EventKind = "password_updated"
)

// Event is delivered to subscribers after every auth-state change.
type Event struct {
	Kind          EventKind
	Authenticated bool
	User          *User
}

// Session owns the caller's token and sanitized user, persists them through
// a Store and broadcasts changes to subscribers. It is safe for concurrent use.
type Session struct {
	client *Client
	store  Store
	log    zerolog.Logger

	mu     sync.RWMutex
	state  State
	subs   map[int]chan Event
	nextID int
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithLogger attaches a logger; dropped events are reported at debug level.
func WithLogger(log zerolog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// NewSession restores any state held by store. A nil store keeps state in memory.
func NewSession(c *Client, store Store, opts ...SessionOption) (*Session, error) {
	if c == nil {
		return nil, errors.New("client is nil")
	}
	if store == nil {
		store = NewMemoryStore()
	}
	state, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	s := &Session{
		client: c,
		store:  store,
		log:    zerolog.Nop(),
		state:  state,
		subs:   make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Token returns the current bearer token, empty when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// User returns a copy of the logged-in user, or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

// IsAuthenticated reports whether a token is held.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Authenticated()
}

// RequireAuth returns ErrNotAuthenticated unless a token is held.
func (s *Session) RequireAuth() error {
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return nil
}

// Signup creates an account without logging in.
func (s *Session) Signup(ctx context.Context, req SignupRequest) (User, error) {
	return s.client.Signup(ctx, req)
}

// Login authenticates, persists the token and user, and publishes EventLogin.
func (s *Session) Login(ctx context.Context, email, password string) (User, error) {
	resp, err := s.client.Login(ctx, email, password)
	if err != nil {
		return User{}, err
	}
	user := resp.User
	if err := s.replace(State{Token: resp.Token, User: &user}, EventLogin); err != nil {
		return User{}, err
	}
	return user, nil
}

// UpdatePassword changes the password and swaps in the replacement token.
func (s *Session) UpdatePassword(ctx context.Context, currentPassword, newPassword string) error {
	token := s.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	resp, err := s.client.UpdatePassword(ctx, token, currentPassword, newPassword)
	if err != nil {
		return err
	}
	user := resp.User
	return s.replace(State{Token: resp.Token, User: &user}, EventPasswordUpdated)
}

// Logout notifies the API and clears local state. Local state is cleared
// even when the API call fails; that error is still returned.
func (s *Session) Logout(ctx context.Context) error {
	apiErr := s.client.Logout(ctx, s.Token())

	s.mu.Lock()
	s.state = State{}
	clearErr := s.store.Clear()
	s.publishLocked(Event{Kind: EventLogout})
	s.mu.Unlock()

	if clearErr != nil {
		return fmt.Errorf("clear session: %w", clearErr)
	}
	return apiErr
}

// Users lists the directory with the session's token, filtered by full name.
func (s *Session) Users(ctx context.Context, search string) ([]User, error) {
	if err := s.RequireAuth(); err != nil {
		return nil, err
	}
	return s.client.ListUsers(ctx, s.Token(), search)
}

// Subscribe returns a channel receiving every subsequent auth-state event.
// The channel is closed once ctx is done. Events are dropped for a
// subscriber whose buffer is full.
func (s *Session) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, subscriberBuffer)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

func (s *Session) replace(next State, kind EventKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(next); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.state = next
	s.publishLocked(Event{Kind: kind, Authenticated: true, User: copyUser(next.User)})
	return nil
}

// publishLocked must be called with s.mu held.
func (s *Session) publishLocked(evt Event) {
	for id, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			s.log.Debug().Int("subscriber", id).Str("event", string(evt.Kind)).Msg("auth event dropped")
		}
	}
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
