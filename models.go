package auth

import (
	"strings"
	"time"
)

// Role is the CoachPro account role
type Role string

const (
	// RoleCoach manages clients and plans
	RoleCoach Role = "COACH"
	// RoleClient follows the plans assigned by a coach
	RoleClient Role = "CLIENT"
	// RoleAdmin manages the platform
	RoleAdmin Role = "ADMIN"
)

// SessionRecord is the authenticated identity cached for a visitor
type SessionRecord struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Role            Role   `json:"role"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	LastActive      string `json:"lastActive,omitempty"`
}

// FullName joins first and last name
func (r SessionRecord) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// LastActiveAt parses the last-active stamp
func (r SessionRecord) LastActiveAt() (time.Time, bool) {
	if r.LastActive == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, r.LastActive)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (r SessionRecord) stamped(now time.Time) SessionRecord {
	r.IsAuthenticated = true
	r.LastActive = now.UTC().Format(time.RFC3339Nano)
	return r
}

// Credentials is the payload sent to the login and register endpoints
type Credentials struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role,omitempty"`
}

// AuthResult is the success body of login and register. RefreshToken
// holds the refresh cookie value when the server sets one, else the body
// value.
type AuthResult struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken,omitempty"`
	User         SessionRecord `json:"user"`
}
