package clients

import (
	"context"
	"net/http"

	"github.com/wms-platform/heatmap-portal/internal/domain"
	"github.com/wms-platform/heatmap-portal/pkg/errors"
	"github.com/wms-platform/heatmap-portal/pkg/logging"
	"github.com/wms-platform/heatmap-portal/pkg/resilience"
)

// AuthClient talks to the external auth service
type AuthClient struct {
	serviceClient
}

// NewAuthClient creates an auth service client
func NewAuthClient(baseURL string, breaker *resilience.CircuitBreaker, logger *logging.Logger, m DownstreamMetrics) *AuthClient {
	return &AuthClient{
		serviceClient: newServiceClient("auth-service", baseURL, breaker, logger, m),
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials with the auth service. A 401 from the
// backend is surfaced as INVALID_CREDENTIALS so the login form can
// distinguish it from an expired-session 401.
func (c *AuthClient) Login(ctx context.Context, username, password string) (*domain.LoginResult, error) {
	var result domain.LoginResult
	err := c.doRequest(ctx, "login", http.MethodPost, "/api/v1/auth/login", "",
		loginRequest{Username: username, Password: password}, &result)
	if err != nil {
		if errors.HasCode(err, errors.CodeUnauthorized) {
			return nil, errors.ErrInvalidCredentials()
		}
		return nil, err
	}
	return &result, nil
}

// CurrentUser fetches the user record the token belongs to
func (c *AuthClient) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	var user domain.User
	if err := c.doRequest(ctx, "current_user", http.MethodGet, "/api/v1/auth/me", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout notifies the auth service that the token is discarded
func (c *AuthClient) Logout(ctx context.Context, token string) error {
	return c.doRequest(ctx, "logout", http.MethodPost, "/api/v1/auth/logout", token, nil, nil)
}

// UpdateProfile passes a profile mutation through to the auth service
func (c *AuthClient) UpdateProfile(ctx context.Context, token string, update domain.ProfileUpdate) (*domain.User, error) {
	var user domain.User
	if err := c.doRequest(ctx, "update_profile", http.MethodPut, "/api/v1/auth/profile", token, update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword passes a password change through to the auth service
func (c *AuthClient) ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error {
	return c.doRequest(ctx, "change_password", http.MethodPut, "/api/v1/auth/password", token,
		changePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword}, nil)
}
