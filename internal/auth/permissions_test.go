package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesadeayuda/helpdesk/internal/domain"
)

func TestEvaluate(t *testing.T) {
	role := &domain.Role{
		Name:            "Técnico",
		PermTickets:     domain.PermWrite,
		PermUsers:       domain.PermRead,
		PermDepartments: domain.PermRead,
		PermAdmin:       domain.PermNone,
		Active:          true,
	}

	tests := []struct {
		name     string
		role     *domain.Role
		category domain.PermissionCategory
		level    int
		allowed  bool
		reason   DecisionReason
	}{
		{"write access granted", role, domain.CategoryTickets, domain.PermWrite, true, ReasonAllowed},
		{"read satisfied by write", role, domain.CategoryTickets, domain.PermRead, true, ReasonAllowed},
		{"insufficient level", role, domain.CategoryUsers, domain.PermWrite, false, ReasonInsufficient},
		{"zero level denied", role, domain.CategoryAdmin, domain.PermRead, false, ReasonInsufficient},
		{"missing role", nil, domain.CategoryTickets, domain.PermRead, false, ReasonNoRole},
		{"unknown category fails closed", role, domain.PermissionCategory("reports"), 0, false, ReasonUnknownCategory},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decision := Evaluate(tc.role, tc.category, tc.level)
			assert.Equal(t, tc.allowed, decision.Allowed)
			assert.Equal(t, tc.reason, decision.Reason)
		})
	}
}
