package models

import "strings"

// Role is a server-assigned role name.
type Role string

const (
	RoleUser   Role = "USER"
	RoleTriage Role = "TRIAGE"
	RoleAdmin  Role = "ADMIN"
)

// AllRoles lists the roles in display order.
var AllRoles = []Role{RoleUser, RoleTriage, RoleAdmin}

// ParseRole returns the role for s, ignoring case.
func ParseRole(s string) (Role, bool) {
	for _, r := range AllRoles {
		if strings.EqualFold(string(r), strings.TrimSpace(s)) {
			return r, true
		}
	}
	return "", false
}

// User is the authenticated principal as returned by the API.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Roles    []Role `json:"roles"`
}

// HasRole reports whether u carries role.
func (u User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Summary returns the embedded form used inside requests and comments.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}

// UserSummary is the compact user embedded in other resources.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// AuthResponse is the body of a successful login.
type AuthResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
	User        User   `json:"user"`
}
