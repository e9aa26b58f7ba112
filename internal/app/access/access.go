package access

import (
	"fmt"

	"bidmarket/internal/app/model"
)

type Permission string

const (
	PermBid         Permission = "bid"
	PermPay         Permission = "pay"
	PermModerate    Permission = "moderate"
	PermSettleRetry Permission = "settle_retry"
	PermAuditRead   Permission = "audit_read"
)

// roleOrder lists roles from least to most privileged. Construction verifies
// that every role's permissions are a superset of the previous role's, so the
// hierarchy is a checked invariant instead of an implicit accumulation loop.
var roleOrder = []model.Role{model.RoleUser, model.RoleModerator, model.RoleAdmin}

var grants = map[model.Role][]Permission{
	model.RoleUser:      {PermBid, PermPay},
	model.RoleModerator: {PermBid, PermPay, PermModerate},
	model.RoleAdmin:     {PermBid, PermPay, PermModerate, PermSettleRetry, PermAuditRead},
}

// Table is the flat role -> permission lookup, computed once at startup.
type Table struct {
	perms map[model.Role]map[Permission]bool
}

func NewTable() (*Table, error) {
	t := &Table{perms: make(map[model.Role]map[Permission]bool, len(roleOrder))}

	for _, role := range roleOrder {
		set := make(map[Permission]bool, len(grants[role]))
		for _, p := range grants[role] {
			set[p] = true
		}
		t.perms[role] = set
	}

	for i := 1; i < len(roleOrder); i++ {
		lower, higher := roleOrder[i-1], roleOrder[i]
		for p := range t.perms[lower] {
			if !t.perms[higher][p] {
				return nil, fmt.Errorf("role %s is missing permission %q granted to %s", higher, p, lower)
			}
		}
	}

	return t, nil
}

// Allowed reports whether the role holds the permission.
func (t *Table) Allowed(role model.Role, p Permission) bool {
	return t.perms[role][p]
}
