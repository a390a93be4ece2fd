package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the application-level role carried by a Profile. Authorization
// decisions key off this value and nothing else.
type UserRole string

const (
	// RoleHomeOwner owns one or more listed properties
	RoleHomeOwner UserRole = "home_owner"
	// RoleArtisan provides maintenance and repair services
	RoleArtisan UserRole = "artisan"
	// RoleAdmin administers the platform, including application review
	RoleAdmin UserRole = "admin"
	// RoleStaff is back-office staff provisioned by an admin
	RoleStaff UserRole = "staff"
	// RoleEstateManager manages an estate on behalf of owners
	RoleEstateManager UserRole = "estate_manager"
	// RoleTenant rents a listed property
	RoleTenant UserRole = "tenant"
)

// ProfileStatus is the lifecycle status of a Profile.
type ProfileStatus string

const (
	ProfileStatusPending   ProfileStatus = "pending"
	ProfileStatusApproved  ProfileStatus = "approved"
	ProfileStatusActive    ProfileStatus = "active"
	ProfileStatusSuspended ProfileStatus = "suspended"
	ProfileStatusInactive  ProfileStatus = "inactive"
)

// Profile is the application-level record describing a user, one-to-one with
// the credential provider's Identity: Profile.ID always equals the owning
// identity id.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string        `bun:"email,notnull,unique" json:"email,omitempty"`
	DisplayName   string        `bun:"display_name,notnull" json:"display_name,omitempty"`
	Role          UserRole      `bun:"user_role,notnull" json:"user_role,omitempty"`
	DisplayRole   string        `bun:"display_role" json:"display_role,omitempty"`
	Status        ProfileStatus `bun:"status,notnull" json:"status,omitempty"`
	IsVerified    bool          `bun:"is_verified" json:"is_verified,omitempty"`
	Company       string        `bun:"company" json:"company,omitempty"`
	Skills        []string      `bun:"skills,array" json:"skills,omitempty"`
	Location      string        `bun:"location" json:"location,omitempty"`
	Phone         string        `bun:"phone_number" json:"phone_number,omitempty"`
	Bio           string        `bun:"bio" json:"bio,omitempty"`
	Experience    string        `bun:"experience" json:"experience,omitempty"`
	IDType        string        `bun:"id_type" json:"id_type,omitempty"`
	IDNumber      string        `bun:"id_number" json:"id_number,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time    `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the zero value so records created before the status
// column behave like pending profiles.
func (p *Profile) EnsureStatus() {
	if p.Status == "" {
		p.Status = ProfileStatusPending
	}
}

// IsApproved reports whether the profile may use approval-gated features.
func (p *Profile) IsApproved() bool {
	return p.Status == ProfileStatusApproved || p.Status == ProfileStatusActive
}

// IsSuspended reports whether the profile is currently suspended.
func (p *Profile) IsSuspended() bool {
	return p.Status == ProfileStatusSuspended
}

// ApplicationKind identifies which promotion track an application follows.
type ApplicationKind string

const (
	ApplicationKindHomeOwner ApplicationKind = "home_owner"
	ApplicationKindArtisan   ApplicationKind = "artisan"
)

// ApplicationStatus is the review status of an Application.
//
// provisioning is the intermediate state between an approval decision and a
// successfully created account: an application stuck in provisioning is
// visible to operators as approved-but-unprovisioned.
type ApplicationStatus string

const (
	ApplicationStatusPending      ApplicationStatus = "pending"
	ApplicationStatusProvisioning ApplicationStatus = "provisioning"
	ApplicationStatusApproved     ApplicationStatus = "approved"
	ApplicationStatusRejected     ApplicationStatus = "rejected"
)

// Application is a prospective home owner or artisan's request to be promoted
// to a live account. It is created on submission and mutated only by review.
type Application struct {
	bun.BaseModel `bun:"table:applications,alias:app"`
	ID            uuid.UUID         `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Kind          ApplicationKind   `bun:"kind,notnull" json:"kind,omitempty"`
	Status        ApplicationStatus `bun:"status,notnull" json:"status,omitempty"`
	Name          string            `bun:"name,notnull" json:"name,omitempty"`
	Email         string            `bun:"email,notnull" json:"email,omitempty"`
	Phone         string            `bun:"phone_number" json:"phone_number,omitempty"`
	Company       string            `bun:"company" json:"company,omitempty"`
	Experience    string            `bun:"experience" json:"experience,omitempty"`
	IDType        string            `bun:"id_type" json:"id_type,omitempty"`
	IDNumber      string            `bun:"id_number" json:"id_number,omitempty"`
	Skills        []string          `bun:"skills,array" json:"skills,omitempty"`
	Bio           string            `bun:"bio" json:"bio,omitempty"`
	Location      string            `bun:"location" json:"location,omitempty"`
	ReviewedBy    string            `bun:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewNotes   string            `bun:"review_notes" json:"review_notes,omitempty"`
	SubmittedAt   *time.Time        `bun:"submitted_at,nullzero,default:current_timestamp" json:"submitted_at,omitempty"`
	LastUpdated   *time.Time        `bun:"last_updated,nullzero,default:current_timestamp" json:"last_updated,omitempty"`
	DeletedAt     *time.Time        `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the zero value for freshly constructed records.
func (a *Application) EnsureStatus() {
	if a.Status == "" {
		a.Status = ApplicationStatusPending
	}
}

// IsTerminal reports whether the application has already been reviewed.
func (a *Application) IsTerminal() bool {
	switch a.Status {
	case ApplicationStatusApproved, ApplicationStatusRejected, ApplicationStatusProvisioning:
		return true
	default:
		return false
	}
}

// Role maps the application kind onto the role the promoted account carries.
func (a *Application) Role() UserRole {
	if a.Kind == ApplicationKindArtisan {
		return RoleArtisan
	}
	return RoleHomeOwner
}
