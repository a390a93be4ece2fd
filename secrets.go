package identity

import (
	"errors"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashSecret will generate a hash for the given secret
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(secret), secretHashCost())
	return string(h), err
}

// CompareSecretAndHash will validate the given cleartext secret matches the
// stored hash
func CompareSecretAndHash(secret, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// GenerateTemporarySecret produces the one-time secret used when an account is
// provisioned on behalf of an applicant. It is never surfaced to the
// applicant; they receive a credential-reset message instead.
func GenerateTemporarySecret() string {
	return uuid.NewString()
}

// DeterministicIdentityID derives a stable UUID from the applicant email so a
// retried provisioning attempt targets the same identity id.
func DeterministicIdentityID(email string) (uuid.UUID, error) {
	return hashid.NewUUID(email)
}
