package identity

import "strings"

// RoleValidator is the read side of role-based access control checks.
type RoleValidator interface {
	// HasRole checks if the user holds one of the allowed roles
	HasRole(allowed ...UserRole) bool

	// IsAtLeast checks if the user's role is at least the minimum required role
	IsAtLeast(minRole UserRole) bool
}

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleHomeOwner, RoleArtisan, RoleAdmin, RoleStaff, RoleEstateManager, RoleTenant:
		return true
	default:
		return false
	}
}

// DisplayName returns the human-readable label carried alongside the role for
// presentation. Authorization never reads this value.
func (r UserRole) DisplayName() string {
	switch r {
	case RoleHomeOwner:
		return "Home Owner"
	case RoleArtisan:
		return "Artisan"
	case RoleAdmin:
		return "Administrator"
	case RoleStaff:
		return "Staff"
	case RoleEstateManager:
		return "Estate Manager"
	case RoleTenant:
		return "Tenant"
	default:
		return string(r)
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleTenant:        0,
		RoleArtisan:       1,
		RoleHomeOwner:     1,
		RoleEstateManager: 2,
		RoleStaff:         3,
		RoleAdmin:         4,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleHomeOwner,
		RoleArtisan,
		RoleAdmin,
		RoleStaff,
		RoleEstateManager,
		RoleTenant,
	}
}

var roleAliases = map[string]UserRole{
	"homeowner":      RoleHomeOwner,
	"home_owner":     RoleHomeOwner,
	"owner":          RoleHomeOwner,
	"artisan":        RoleArtisan,
	"admin":          RoleAdmin,
	"administrator":  RoleAdmin,
	"staff":          RoleStaff,
	"estatemanager":  RoleEstateManager,
	"estate_manager": RoleEstateManager,
	"manager":        RoleEstateManager,
	"tenant":         RoleTenant,
}

// ParseRole is the single canonical mapping from a raw role string to a
// UserRole. Every call site that receives a role from the outside goes
// through here; there is no per-call-site normalization.
func ParseRole(roleStr string) (UserRole, bool) {
	normalized := strings.ToLower(strings.TrimSpace(roleStr))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")

	if role := UserRole(normalized); role.IsValid() {
		return role, true
	}

	collapsed := strings.ReplaceAll(normalized, "_", "")
	if role, ok := roleAliases[collapsed]; ok {
		return role, true
	}
	if role, ok := roleAliases[normalized]; ok {
		return role, true
	}

	return "", false
}
