package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/wms-platform/heatmap-portal/internal/domain"
	"github.com/wms-platform/heatmap-portal/pkg/errors"
	"github.com/wms-platform/heatmap-portal/pkg/logging"
)

// Persisted keys. These survive process restart.
const (
	keyAccessToken = "access_token"
	keyUserInfo    = "user_info"
	keyGuestMode   = "guest_mode"
)

// KV is the durable key-value persistence for session state
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// AuthService is the external authentication collaborator
type AuthService interface {
	Login(ctx context.Context, username, password string) (*domain.LoginResult, error)
	CurrentUser(ctx context.Context, token string) (*domain.User, error)
	Logout(ctx context.Context, token string) error
	UpdateProfile(ctx context.Context, token string, update domain.ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error
}

// Metrics records session state transitions
type Metrics interface {
	RecordSessionTransition(transition string)
}

// Store is the session state machine. States: anonymous (no token, no
// guest marker), guest (local-only read access), authenticated (token +
// user record). A session is never simultaneously guest and
// token-authenticated.
type Store struct {
	mu      sync.Mutex
	auth    AuthService
	kv      KV
	logger  *logging.Logger
	metrics Metrics

	token string
	user  *domain.User
	guest bool
}

// New constructs the session store and hydrates it from persisted state.
// A persisted token-plus-user pair wins over a conflicting stale guest
// marker; the stale marker is removed.
func New(ctx context.Context, auth AuthService, kv KV, logger *logging.Logger, m Metrics) *Store {
	s := &Store{
		auth:    auth,
		kv:      kv,
		logger:  logger.WithComponent("session-store"),
		metrics: m,
	}
	s.hydrate(ctx)
	return s
}

func (s *Store) hydrate(ctx context.Context) {
	token, hasToken, err := s.kv.Get(ctx, keyAccessToken)
	if err != nil {
		s.logger.WithError(err).Warn("session hydration: token read failed")
	}
	userJSON, hasUser, err := s.kv.Get(ctx, keyUserInfo)
	if err != nil {
		s.logger.WithError(err).Warn("session hydration: user read failed")
	}
	_, hasGuest, err := s.kv.Get(ctx, keyGuestMode)
	if err != nil {
		s.logger.WithError(err).Warn("session hydration: guest marker read failed")
	}

	if hasToken && token != "" && hasUser {
		var u domain.User
		if err := json.Unmarshal([]byte(userJSON), &u); err != nil {
			s.logger.WithError(err).Warn("session hydration: persisted user unreadable, starting anonymous")
			s.removeQuietly(ctx, keyAccessToken, keyUserInfo)
			return
		}
		s.token = token
		s.user = &u
		if hasGuest {
			s.removeQuietly(ctx, keyGuestMode)
		}
		s.logger.Info("session restored", "username", u.Username, "role", string(u.Role))
		return
	}

	if hasGuest {
		s.guest = true
		s.user = guestUser()
		s.logger.Info("guest session restored")
	}
}

// Login authenticates against the auth service. On failure the session is
// unchanged and the error is returned to the caller untouched. On success
// any guest marker is cleared and the token and user are persisted.
func (s *Store) Login(ctx context.Context, username, password string) (*domain.User, error) {
	result, err := s.auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	from := s.stateName()
	s.guest = false
	s.token = result.AccessToken
	u := result.User
	s.user = &u
	s.mu.Unlock()

	s.removeQuietly(ctx, keyGuestMode)
	s.persistQuietly(ctx, keyAccessToken, result.AccessToken)
	s.persistUserQuietly(ctx, &u)

	s.metrics.RecordSessionTransition("login")
	s.logger.SessionTransition(ctx, from, "authenticated", "login")
	return &u, nil
}

// EnterGuest switches to read-only guest access. Local only, no network
// call: the token is cleared and a synthetic user-role record is set.
func (s *Store) EnterGuest(ctx context.Context) {
	s.mu.Lock()
	from := s.stateName()
	s.token = ""
	s.guest = true
	s.user = guestUser()
	s.mu.Unlock()

	s.removeQuietly(ctx, keyAccessToken, keyUserInfo)
	s.persistQuietly(ctx, keyGuestMode, "true")

	s.metrics.RecordSessionTransition("enter_guest")
	s.logger.SessionTransition(ctx, from, "guest", "enter_guest")
}

// Logout returns the session to anonymous. For authenticated sessions the
// remote logout notification is best-effort: local state is cleared
// unconditionally even when the call fails.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	from := s.stateName()
	token := s.token
	wasGuest := s.guest
	s.mu.Unlock()

	if token != "" && !wasGuest {
		if err := s.auth.Logout(ctx, token); err != nil {
			s.logger.WithError(err).Warn("remote logout failed, clearing local session anyway")
		}
	}

	s.clearLocal(ctx)

	s.metrics.RecordSessionTransition("logout")
	s.logger.SessionTransition(ctx, from, "anonymous", "logout")
}

// Refresh re-validates the token by re-fetching the current user. On
// failure the session is forced back to anonymous; the failure itself is
// absorbed, never surfaced as a separate error.
func (s *Store) Refresh(ctx context.Context) *domain.User {
	s.mu.Lock()
	token := s.token
	guest := s.guest
	s.mu.Unlock()

	if token == "" || guest {
		return nil
	}

	u, err := s.auth.CurrentUser(ctx, token)
	if err != nil {
		s.logger.WithError(err).Warn("token validation failed, forcing logout")
		s.clearLocal(ctx)
		s.metrics.RecordSessionTransition("forced_logout")
		s.logger.SessionTransition(ctx, "authenticated", "anonymous", "refresh_failed")
		return nil
	}

	s.mu.Lock()
	// Logout may have raced the refresh; local clearing always wins.
	if s.token != token {
		s.mu.Unlock()
		return nil
	}
	s.user = u
	s.mu.Unlock()

	s.persistUserQuietly(ctx, u)
	return u
}

// UpdateProfile passes the mutation through to the auth service and
// refreshes the stored user snapshot on success
func (s *Store) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.User, error) {
	s.mu.Lock()
	token := s.token
	guest := s.guest
	s.mu.Unlock()

	if token == "" || guest {
		return nil, errGuestReadOnly()
	}

	u, err := s.auth.UpdateProfile(ctx, token, update)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.token == token {
		s.user = u
	}
	s.mu.Unlock()

	s.persistUserQuietly(ctx, u)
	return u, nil
}

// ChangePassword passes the mutation through to the auth service
func (s *Store) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	s.mu.Lock()
	token := s.token
	guest := s.guest
	s.mu.Unlock()

	if token == "" || guest {
		return errGuestReadOnly()
	}

	return s.auth.ChangePassword(ctx, token, oldPassword, newPassword)
}

// IsLoggedIn is true for guest and authenticated sessions
func (s *Store) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guest || s.token != ""
}

// IsAdmin is true only for an authenticated admin. A guest is never admin
// regardless of any stored role field.
func (s *Store) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.guest && s.token != "" && s.user != nil && s.user.Role == domain.RoleAdmin
}

// HasPermission checks the session against a required role. Any identity
// satisfies the user role; admin requires an exact authenticated admin.
func (s *Store) HasPermission(required domain.Role) bool {
	if required == domain.RoleAdmin {
		return s.IsAdmin()
	}
	return s.IsLoggedIn()
}

// Token returns the current access token, empty when not authenticated
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Snapshot returns the session view exposed to the rendering layer
func (s *Store) Snapshot() domain.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := domain.SessionInfo{
		IsLoggedIn:  s.guest || s.token != "",
		IsGuest:     s.guest,
		IsAdmin:     !s.guest && s.token != "" && s.user != nil && s.user.Role == domain.RoleAdmin,
		DisplayName: s.user.DisplayName(),
	}
	if s.user != nil {
		info.Username = s.user.Username
		info.Role = s.user.Role
	}
	return info
}

// stateName must be called with the mutex held
func (s *Store) stateName() string {
	switch {
	case s.guest:
		return "guest"
	case s.token != "":
		return "authenticated"
	default:
		return "anonymous"
	}
}

func (s *Store) clearLocal(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.guest = false
	s.mu.Unlock()

	s.removeQuietly(ctx, keyAccessToken, keyUserInfo, keyGuestMode)
}

// Persistence failures are logged, never propagated: a state transition
// must not be blocked by the KV store.
func (s *Store) persistQuietly(ctx context.Context, key, value string) {
	if err := s.kv.Set(ctx, key, value); err != nil {
		s.logger.WithError(err).Warn("session persistence write failed", "key", key)
	}
}

func (s *Store) persistUserQuietly(ctx context.Context, u *domain.User) {
	data, err := json.Marshal(u)
	if err != nil {
		s.logger.WithError(err).Warn("session user snapshot encode failed")
		return
	}
	s.persistQuietly(ctx, keyUserInfo, string(data))
}

func (s *Store) removeQuietly(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := s.kv.Remove(ctx, key); err != nil {
			s.logger.WithError(err).Warn("session persistence remove failed", "key", key)
		}
	}
}

func errGuestReadOnly() error {
	return errors.ErrForbidden("a login is required for this operation")
}

func guestUser() *domain.User {
	return &domain.User{
		Username: "guest",
		Nickname: "访客",
		Role:     domain.RoleUser,
		IsActive: true,
	}
}
