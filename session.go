package identity

import (
	"fmt"
	"time"
)

// SessionSnapshot is an immutable view of "who is signed in and what can they
// do", taken under the session manager's lock. Callers never construct one
// directly; they ask the manager for it.
type SessionSnapshot struct {
	Loading  bool
	Identity Identity
	Profile  *Profile
	TakenAt  time.Time
}

// Authenticated reports whether an identity is present.
func (s SessionSnapshot) Authenticated() bool {
	return s.Identity != nil
}

// HasRole is false whenever the profile is missing, otherwise exactly
// profile.Role ∈ allowed.
func (s SessionSnapshot) HasRole(allowed ...UserRole) bool {
	if s.Profile == nil {
		return false
	}
	for _, role := range allowed {
		if s.Profile.Role == role {
			return true
		}
	}
	return false
}

// IsAtLeast checks if the profile's role is at least the minimum required role.
func (s SessionSnapshot) IsAtLeast(minRole UserRole) bool {
	if s.Profile == nil {
		return false
	}
	return s.Profile.Role.IsAtLeast(minRole)
}

// IsVerified reports the profile's verification flag, false when no profile.
func (s SessionSnapshot) IsVerified() bool {
	if s.Profile == nil {
		return false
	}
	return s.Profile.IsVerified
}

// IsApproved is true iff the profile status is approved or active.
func (s SessionSnapshot) IsApproved() bool {
	if s.Profile == nil {
		return false
	}
	return s.Profile.IsApproved()
}

var _ RoleValidator = SessionSnapshot{}

func (s SessionSnapshot) String() string {
	id := "<nil>"
	if s.Identity != nil {
		id = s.Identity.ID()
	}
	role := "<none>"
	if s.Profile != nil {
		role = string(s.Profile.Role)
	}
	return fmt.Sprintf("identity=%s role=%s loading=%t", id, role, s.Loading)
}
