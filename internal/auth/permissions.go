package auth

import "github.com/mesadeayuda/helpdesk/internal/domain"

// DecisionReason explains why access was denied.
type DecisionReason string

const (
	ReasonAllowed         DecisionReason = "allowed"
	ReasonUnauthenticated DecisionReason = "unauthenticated"
	ReasonNoRole          DecisionReason = "no_role"
	ReasonUnknownCategory DecisionReason = "unknown_category"
	ReasonInsufficient    DecisionReason = "insufficient_level"
)

// Decision is the typed result of a permission check. Control flow (redirects,
// flashes, status codes) is left to the caller.
type Decision struct {
	Allowed bool
	Reason  DecisionReason
}

// Evaluate compares a role's level for a category against the required
// minimum. Unknown categories fail closed.
func Evaluate(role *domain.Role, category domain.PermissionCategory, level int) Decision {
	if role == nil {
		return Decision{Reason: ReasonNoRole}
	}
	have := role.PermissionFor(category)
	if have < 0 {
		return Decision{Reason: ReasonUnknownCategory}
	}
	if have < level {
		return Decision{Reason: ReasonInsufficient}
	}
	return Decision{Allowed: true, Reason: ReasonAllowed}
}
