// Package session owns the authenticated-identity lifecycle: sign-in,
// sign-up, sign-out, session restore, and the current profile projection.
// A Manager is an explicitly constructed instance, one per portal session,
// injected into its consumers so tests can run isolated instances.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ecoh2o/portal/internal/domain"
)

// State is the tri-state authentication status. Callers must branch on all
// three: Pending is not Unauthenticated, and rendering a sign-in prompt while
// a persisted session is still resolving is a bug.
type State int

const (
	StateUnauthenticated State = iota
	StatePending
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Change describes one state transition, delivered to observers.
type Change struct {
	State    State
	Identity *domain.Identity // non-nil only when State is StateAuthenticated
}

// Observer receives state transitions. Observers are called synchronously in
// registration order; they must not block.
type Observer func(Change)

// DefaultProviderTimeout bounds every provider call. The provider contract
// offers no native timeout guarantee.
const DefaultProviderTimeout = 10 * time.Second

// Manager owns the identity and profile state for one portal session.
type Manager struct {
	users    domain.UserRepository
	profiles domain.ProfileRepository
	timeout  time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	state    State
	identity *domain.Identity
	profile  *domain.Profile
	token    string
	epoch    uint64 // bumped on every identity transition; stale async loads are dropped

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObsID int
}

// Option configures a Manager.
type Option func(*Manager)

// WithProviderTimeout overrides the bound applied to provider calls.
func WithProviderTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

// NewManager creates a Manager in the Unauthenticated state.
func NewManager(users domain.UserRepository, profiles domain.ProfileRepository, opts ...Option) *Manager {
	m := &Manager{
		users:     users,
		profiles:  profiles,
		timeout:   DefaultProviderTimeout,
		logger:    slog.Default().With("service", "session"),
		state:     StateUnauthenticated,
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the identity and state. The identity pointer is non-nil
// only in the Authenticated state.
func (m *Manager) Current() (*domain.Identity, State) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity, m.state
}

// Token returns the provider session token for the current identity, or ""
// when unauthenticated.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Profile returns a copy of the current profile projection, or nil while it
// has not loaded (or no identity is current).
func (m *Manager) Profile() *domain.Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.profile == nil {
		return nil
	}
	p := *m.profile
	return &p
}

// OnChange registers an observer for state transitions and returns its
// unsubscribe func. The release is the caller's responsibility on every exit
// path of the owning scope.
func (m *Manager) OnChange(fn Observer) func() {
	m.obsMu.Lock()
	id := m.nextObsID
	m.nextObsID++
	m.observers[id] = fn
	m.obsMu.Unlock()

	return func() {
		m.obsMu.Lock()
		delete(m.observers, id)
		m.obsMu.Unlock()
	}
}

// SignIn exchanges credentials for an authenticated identity.
// Returns domain.ErrInvalidCredentials when the provider rejects the pair;
// any other failure is wrapped as-is.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	user := &domain.User{Email: email}
	token, err := m.users.SignIn(ctx, user, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("sign-in failed: %w", err)
	}

	resolved, err := m.users.Authenticate(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("sign-in token resolution failed: %w", err)
	}

	identity := domain.IdentityOf(resolved)
	m.become(StateAuthenticated, &identity, token)
	return &identity, nil
}

// SignUp creates the backing account. The provider signs the new user in
// implicitly (record access returns a token), so on success the manager
// transitions to Authenticated, matching provider semantics.
// Returns domain.ErrUserAlreadyExists when the email is already registered.
func (m *Manager) SignUp(ctx context.Context, email, password, displayName string) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	user := &domain.User{Email: email}
	if displayName != "" {
		user.Name = &displayName
	}

	token, err := m.users.SignUp(ctx, user, password)
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("sign-up failed: %w", err)
	}

	resolved, err := m.users.Authenticate(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("sign-up token resolution failed: %w", err)
	}

	identity := domain.IdentityOf(resolved)
	m.become(StateAuthenticated, &identity, token)
	return &identity, nil
}

// Restore resolves a persisted session token. The manager is Pending while
// resolution is in flight; an invalid or expired token lands in
// Unauthenticated without error.
func (m *Manager) Restore(ctx context.Context, token string) {
	if token == "" {
		m.become(StateUnauthenticated, nil, "")
		return
	}

	m.become(StatePending, nil, "")

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	user, err := m.users.Authenticate(ctx, token)
	if err != nil {
		m.logger.Info("session restore rejected", "error", err)
		m.become(StateUnauthenticated, nil, "")
		return
	}

	identity := domain.IdentityOf(user)
	m.become(StateAuthenticated, &identity, token)
}

// SignOut always succeeds locally: identity and profile are cleared and
// observers are notified so dependent subscriptions tear down.
func (m *Manager) SignOut(ctx context.Context) {
	m.become(StateUnauthenticated, nil, "")
}

// UpdateProfile merges only the provided fields. On success the local
// projection is updated immediately, without a re-fetch, so there is no
// visible staleness window. Returns domain.ErrUnauthenticated without an identity and
// domain.ErrPersistenceFailed when the provider rejects the write.
func (m *Manager) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) error {
	m.mu.RLock()
	identity := m.identity
	state := m.state
	m.mu.RUnlock()

	if state != StateAuthenticated || identity == nil {
		return domain.ErrUnauthenticated
	}
	if update.IsEmpty() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.profiles.Merge(ctx, identity.ID, update); err != nil {
		m.logger.Error("profile update rejected by provider", "error", err)
		return fmt.Errorf("%w: %v", domain.ErrPersistenceFailed, err)
	}

	m.mu.Lock()
	if m.identity != nil && m.identity.ID == identity.ID {
		if m.profile == nil {
			m.profile = &domain.Profile{OwnerID: identity.ID}
		}
		update.Apply(m.profile)
		// An in-flight load snapshotted the row before this edit; bumping the
		// epoch makes it discard its result instead of clobbering the merge.
		m.epoch++
	}
	m.mu.Unlock()

	return nil
}

// become performs a state transition, kicks off the async profile load on
// entry to Authenticated, and notifies observers.
func (m *Manager) become(state State, identity *domain.Identity, token string) {
	m.mu.Lock()
	m.state = state
	m.identity = identity
	m.token = token
	m.profile = nil
	m.epoch++
	epoch := m.epoch
	m.mu.Unlock()

	if state == StateAuthenticated && identity != nil {
		// Non-blocking: callers get their identity back while the profile
		// projection fills in.
		go m.loadProfile(epoch, *identity)
	}

	m.notify(Change{State: state, Identity: identity})
}

// loadProfile fetches the profile for an identity, creating it lazily on
// first authenticated load. Results from a superseded epoch are discarded.
func (m *Manager) loadProfile(epoch uint64, identity domain.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	profile, err := m.profiles.FindByOwner(ctx, identity.ID)
	if errors.Is(err, domain.ErrNotFound) {
		profile, err = m.profiles.Create(ctx, &domain.Profile{OwnerID: identity.ID})
	}
	if err != nil {
		m.logger.Error("profile load failed", "owner", identity.ID, "error", err)
		return
	}

	m.mu.Lock()
	if m.epoch == epoch {
		m.profile = profile
	}
	m.mu.Unlock()
}

func (m *Manager) notify(change Change) {
	m.obsMu.Lock()
	ids := make([]int, 0, len(m.observers))
	for id := range m.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	observers := make([]Observer, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, m.observers[id])
	}
	m.obsMu.Unlock()

	for _, fn := range observers {
		fn(change)
	}
}
