package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the read side of a session token: who the holder is and
// what the gate needs to know about them.
type SessionClaims interface {
	Subject() string
	IdentityID() string
	Role() UserRole
	DisplayName() string
	Verified() bool
	Approved() bool
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete JWT-backed implementation of SessionClaims.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID      string         `json:"uid,omitempty"`
	UserRole UserRole       `json:"role,omitempty"`
	Name     string         `json:"name,omitempty"`
	IsVerif  bool           `json:"verified,omitempty"`
	IsApprov bool           `json:"approved,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"` // extension payload
}

var _ SessionClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// IdentityID returns the identity id, falling back to the subject claim.
func (c *JWTClaims) IdentityID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the role carried by the token.
func (c *JWTClaims) Role() UserRole {
	return c.UserRole
}

// DisplayName returns the display name carried by the token.
func (c *JWTClaims) DisplayName() string {
	return c.Name
}

// Verified reports the email verification flag at issue time.
func (c *JWTClaims) Verified() bool {
	return c.IsVerif
}

// Approved reports the profile approval flag at issue time.
func (c *JWTClaims) Approved() bool {
	return c.IsApprov
}

// HasRole reports whether the token role matches. The raw string goes through
// the canonical role mapping, so aliases and casing variants match too.
func (c *JWTClaims) HasRole(role string) bool {
	parsed, ok := ParseRole(role)
	if !ok {
		return false
	}
	return c.UserRole == parsed
}

// IsAtLeast checks the token role against the role hierarchy.
func (c *JWTClaims) IsAtLeast(minRole string) bool {
	parsed, ok := ParseRole(minRole)
	if !ok {
		return false
	}
	return c.UserRole.IsAtLeast(parsed)
}

// ClaimsMetadata exposes metadata extensions for optional context enrichment.
func (c *JWTClaims) ClaimsMetadata() map[string]any {
	return c.Metadata
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
