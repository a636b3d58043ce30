package domain

import "time"

// Role is a user authorization role
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the account record returned by the auth service
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Nickname  string     `json:"nickname,omitempty"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Role      Role       `json:"role"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// DisplayName returns the name shown in the UI header
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}

// LoginResult is the auth service response to a successful login
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        User   `json:"user"`
}

// ProfileUpdate carries the mutable profile fields
type ProfileUpdate struct {
	Nickname *string `json:"nickname,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

// SessionInfo is the session snapshot exposed to the rendering layer
type SessionInfo struct {
	IsLoggedIn  bool   `json:"is_logged_in"`
	IsGuest     bool   `json:"is_guest"`
	IsAdmin     bool   `json:"is_admin"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username,omitempty"`
	Role        Role   `json:"role,omitempty"`
}
