package identity

// GateConfig describes what a protected action or route requires. The zero
// value only requires an authenticated identity.
type GateConfig struct {
	AllowedRoles        []UserRole
	RequireVerification bool
	RequireApproval     bool
}

// GateState is the gate's position in its evaluation lifecycle.
type GateState string

const (
	// GateInitializing means the session is still loading; callers block and
	// re-evaluate on the next session change.
	GateInitializing GateState = "initializing"
	GateAllowed      GateState = "allowed"
	GateDenied       GateState = "denied"
)

// DenyReason is the machine-readable reason attached to a denied decision.
type DenyReason string

const (
	DenyUnauthenticated DenyReason = "unauthenticated"
	DenyForbiddenRole   DenyReason = "forbidden_role"
	DenyUnverified      DenyReason = "unverified"
	DenyUnapproved      DenyReason = "unapproved"
)

// Decision is the gate's answer for one snapshot. The gate never errors and
// never navigates; callers act on the decision.
type Decision struct {
	State  GateState
	Reason DenyReason
}

// Allowed reports whether the checks all passed.
func (d Decision) Allowed() bool {
	return d.State == GateAllowed
}

// Denied reports whether any check failed. An initializing decision is
// neither allowed nor denied.
func (d Decision) Denied() bool {
	return d.State == GateDenied
}

// Evaluate runs the gate checks against a session snapshot in fixed order:
// loading, authentication, role, verification, approval. Decisions are never
// cached: callers must re-evaluate on every session mutation.
func Evaluate(session SessionSnapshot, cfg GateConfig) Decision {
	if session.Loading {
		return Decision{State: GateInitializing}
	}

	if !session.Authenticated() {
		return Decision{State: GateDenied, Reason: DenyUnauthenticated}
	}

	if len(cfg.AllowedRoles) > 0 && !session.HasRole(cfg.AllowedRoles...) {
		return Decision{State: GateDenied, Reason: DenyForbiddenRole}
	}

	if cfg.RequireVerification && !session.IsVerified() {
		return Decision{State: GateDenied, Reason: DenyUnverified}
	}

	if cfg.RequireApproval && !session.IsApproved() {
		return Decision{State: GateDenied, Reason: DenyUnapproved}
	}

	return Decision{State: GateAllowed}
}

// SnapshotSource yields the current session snapshot; *SessionManager
// implements it.
type SnapshotSource interface {
	Snapshot() SessionSnapshot
}

// Gate binds a snapshot source to a config so call sites can re-check cheaply.
type Gate struct {
	source SnapshotSource
	cfg    GateConfig
}

// NewGate builds a gate over the given source. The gate holds no decision
// state; every Check re-reads the session.
func NewGate(source SnapshotSource, cfg GateConfig) *Gate {
	return &Gate{source: source, cfg: cfg}
}

// Check evaluates the gate against the source's current snapshot.
func (g *Gate) Check() Decision {
	return Evaluate(g.source.Snapshot(), g.cfg)
}
