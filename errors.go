package identity

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	textCodeIdentityNotFound     = "IDENTITY_NOT_FOUND"
	textCodeProfileNotFound      = "PROFILE_NOT_FOUND"
	textCodeApplicationNotFound  = "APPLICATION_NOT_FOUND"
	textCodeApplicationReviewed  = "APPLICATION_ALREADY_REVIEWED"
	textCodeEmailTaken           = "EMAIL_ALREADY_REGISTERED"
	textCodeMissingFields        = "MISSING_REQUIRED_FIELDS"
	textCodeInvalidRole          = "INVALID_ROLE"
	textCodeResetDelivery        = "RESET_DELIVERY_FAILED"
	textCodeProviderTimeout      = "CREDENTIAL_PROVIDER_TIMEOUT"
	textCodeAccountNotApproved   = "ACCOUNT_NOT_APPROVED"
	textCodeAccountNotVerified   = "ACCOUNT_NOT_VERIFIED"
	textCodeForbiddenRole        = "FORBIDDEN_ROLE"
	textCodeUnauthenticated      = "UNAUTHENTICATED"
)

// ErrInvalidCredentials is returned by sign-in when the email/secret pair does
// not match a stored identity. The session is left unauthenticated.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrIdentityNotFound is returned when the credential provider has no record
// for the requested identity.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeIdentityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrProfileNotFound is returned when no profile exists for an identity id.
var ErrProfileNotFound = goerrors.New("profile not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeProfileNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrApplicationNotFound is returned by review when the application id is unknown.
var ErrApplicationNotFound = goerrors.New("application not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeApplicationNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrApplicationReviewed is returned when review is attempted on an
// application that is no longer pending.
var ErrApplicationReviewed = goerrors.New("application is no longer pending", goerrors.CategoryConflict).
	WithTextCode(textCodeApplicationReviewed).
	WithCode(goerrors.CodeConflict)

// ErrEmailAlreadyRegistered is the provisioning failure for duplicate emails.
var ErrEmailAlreadyRegistered = goerrors.New("email is already registered", goerrors.CategoryConflict).
	WithTextCode(textCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrMissingRequiredFields is returned when sign-up or approval is missing a
// non-empty email or display name.
var ErrMissingRequiredFields = goerrors.New("email and name are required", goerrors.CategoryValidation).
	WithTextCode(textCodeMissingFields).
	WithCode(goerrors.CodeBadRequest)

// ErrForbiddenRole is the authorization failure for a role outside a route's
// allowed set.
var ErrForbiddenRole = goerrors.New("role is not allowed on this route", goerrors.CategoryAuthz).
	WithTextCode(textCodeForbiddenRole).
	WithCode(goerrors.CodeForbidden)

// ErrAccountNotVerified is the authorization failure for routes requiring a
// verified email.
var ErrAccountNotVerified = goerrors.New("account email is not verified", goerrors.CategoryAuthz).
	WithTextCode(textCodeAccountNotVerified).
	WithCode(goerrors.CodeForbidden)

// ErrAccountNotApproved is the authorization failure for routes requiring an
// approved profile.
var ErrAccountNotApproved = goerrors.New("account is not approved", goerrors.CategoryAuthz).
	WithTextCode(textCodeAccountNotApproved).
	WithCode(goerrors.CodeForbidden)

// ErrInvalidRole is returned when a raw role string has no canonical mapping.
var ErrInvalidRole = goerrors.New("unknown or invalid role", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidRole).
	WithCode(goerrors.CodeBadRequest)

// ErrResetDelivery marks a failed credential-reset delivery. It is recorded
// and logged by the workflow, never surfaced as an operation failure.
var ErrResetDelivery = goerrors.New("credential reset delivery failed", goerrors.CategoryOperation).
	WithTextCode(textCodeResetDelivery)

// ErrProviderTimeout is returned when a credential provider call exceeds its
// deadline instead of hanging indefinitely.
var ErrProviderTimeout = goerrors.New("credential provider timed out", goerrors.CategoryOperation).
	WithTextCode(textCodeProviderTimeout)

// ErrNoEmptyString rejects empty secrets before hashing.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the generic bad-secret comparison failure.
var ErrMismatchedHashAndPassword = goerrors.New("credentials do not match", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// IsProvisioningConflict reports whether err is a provider rejection of
// identity creation (duplicate email or similar).
func IsProvisioningConflict(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category == goerrors.CategoryConflict
	}
	return false
}

// IsNotFound reports whether err represents a missing record, whichever layer
// produced it.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.IsNotFound(err) {
		return true
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category == goerrors.CategoryNotFound
	}
	return false
}
