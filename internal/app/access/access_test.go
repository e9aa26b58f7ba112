package access

import (
	"testing"

	"bidmarket/internal/app/model"

	"github.com/stretchr/testify/require"
)

func TestNewTable_HierarchyHolds(t *testing.T) {
	_, err := NewTable()
	require.NoError(t, err)
}

func TestTable_Allowed(t *testing.T) {
	tbl, err := NewTable()
	require.NoError(t, err)

	tests := []struct {
		name    string
		role    model.Role
		perm    Permission
		allowed bool
	}{
		{name: "user_can_bid", role: model.RoleUser, perm: PermBid, allowed: true},
		{name: "user_can_pay", role: model.RoleUser, perm: PermPay, allowed: true},
		{name: "user_cannot_moderate", role: model.RoleUser, perm: PermModerate},
		{name: "user_cannot_retry_settlement", role: model.RoleUser, perm: PermSettleRetry},
		{name: "moderator_can_moderate", role: model.RoleModerator, perm: PermModerate, allowed: true},
		{name: "moderator_cannot_retry_settlement", role: model.RoleModerator, perm: PermSettleRetry},
		{name: "admin_can_retry_settlement", role: model.RoleAdmin, perm: PermSettleRetry, allowed: true},
		{name: "admin_can_read_audit", role: model.RoleAdmin, perm: PermAuditRead, allowed: true},
		{name: "unknown_role_has_nothing", role: model.Role("guest"), perm: PermBid},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.allowed, tbl.Allowed(tc.role, tc.perm))
		})
	}
}

func TestTable_HigherRolesKeepLowerPermissions(t *testing.T) {
	tbl, err := NewTable()
	require.NoError(t, err)

	for _, role := range []model.Role{model.RoleModerator, model.RoleAdmin} {
		for _, p := range grants[model.RoleUser] {
			require.True(t, tbl.Allowed(role, p), "role %s must keep base permission %s", role, p)
		}
	}
}
