package identity_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	identity "github.com/homequest/go-identity"
)

func TestJWTClaimsRoleChecks(t *testing.T) {
	claims := &identity.JWTClaims{
		UID:      "id-1",
		UserRole: identity.RoleEstateManager,
		Name:     "Kofi Boateng",
		IsVerif:  true,
		IsApprov: true,
	}

	assert.True(t, claims.HasRole("estate_manager"))
	assert.True(t, claims.HasRole("Estate Manager"))
	assert.True(t, claims.HasRole("manager"))
	assert.False(t, claims.HasRole("admin"))
	assert.False(t, claims.HasRole("not-a-role"))

	assert.True(t, claims.IsAtLeast("tenant"))
	assert.True(t, claims.IsAtLeast("estate_manager"))
	assert.False(t, claims.IsAtLeast("staff"))
	assert.False(t, claims.IsAtLeast("not-a-role"))

	assert.Equal(t, identity.RoleEstateManager, claims.Role())
	assert.Equal(t, "Kofi Boateng", claims.DisplayName())
	assert.True(t, claims.Verified())
	assert.True(t, claims.Approved())

	claims.IsApprov = false
	assert.False(t, claims.Approved())
}

func TestJWTClaimsIdentityIDFallsBackToSubject(t *testing.T) {
	claims := &identity.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-1"},
	}
	assert.Equal(t, "subject-1", claims.IdentityID())

	claims.UID = "uid-1"
	assert.Equal(t, "uid-1", claims.IdentityID())
}

func TestJWTClaimsTimes(t *testing.T) {
	issued := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	expires := issued.Add(24 * time.Hour)

	claims := &identity.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	assert.Equal(t, issued, claims.IssuedAt())
	assert.Equal(t, expires, claims.Expires())

	empty := &identity.JWTClaims{}
	assert.True(t, empty.IssuedAt().IsZero())
	assert.True(t, empty.Expires().IsZero())
}
