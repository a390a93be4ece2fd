package local

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// IdentityRecord is the stored credential record. It never leaves this
// package; callers see identity.Identity values.
type IdentityRecord struct {
	bun.BaseModel `bun:"table:identities,alias:idn"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	DisplayName   string     `bun:"display_name" json:"display_name,omitempty"`
	SecretHash    string     `bun:"secret_hash,notnull" json:"-"`
	EmailVerified bool       `bun:"email_verified" json:"email_verified,omitempty"`
	LoginAttempts int        `bun:"login_attempts" json:"-"`
	LastAttemptAt *time.Time `bun:"last_attempt_at,nullzero" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// CredentialReset tracks an issued reset token.
type CredentialReset struct {
	bun.BaseModel `bun:"table:credential_resets,alias:crs"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	IdentityID    *uuid.UUID `bun:"identity_id,nullzero,type:uuid" json:"identity_id,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	Status        string     `bun:"status,notnull" json:"status,omitempty"`
	RequestedAt   *time.Time `bun:"requested_at,nullzero,default:current_timestamp" json:"requested_at,omitempty"`
	CompletedAt   *time.Time `bun:"completed_at,nullzero" json:"completed_at,omitempty"`
}

const (
	ResetRequestedStatus = "requested"
	ResetCompletedStatus = "completed"
)
