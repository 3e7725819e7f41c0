// Package security provides authorization and access control.
package security

import (
	"context"
	"fmt"
	"slices"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
)

// Permission codes checked by the HTTP layer.
const (
	PermStockRead     = "stock:read"
	PermStockWrite    = "stock:write"
	PermStockFinish   = "stock:finish"
	PermGroceryRead   = "grocery:read"
	PermGroceryWrite  = "grocery:write"
	PermGroceryFinish = "grocery:finish"
	PermMachineRead   = "machine:read"
	PermMachineWrite  = "machine:write"
	PermCatalogRead   = "catalog:read"
	PermCatalogWrite  = "catalog:write"
	PermReportRead    = "report:read"
	PermActivityRead  = "activity:read"
)

// Role defines a set of permissions.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCashier Role = "cashier"
	RoleViewer  Role = "viewer"
)

// rolePermissions are granted to every holder of the role, on top of
// the permissions carried in the token.
var rolePermissions = map[Role][]string{
	RoleManager: {
		PermStockRead, PermStockWrite, PermStockFinish,
		PermGroceryRead, PermGroceryWrite, PermGroceryFinish,
		PermMachineRead, PermMachineWrite,
		PermCatalogRead, PermCatalogWrite,
		PermReportRead, PermActivityRead,
	},
	RoleCashier: {
		PermStockRead, PermStockWrite,
		PermGroceryRead, PermGroceryWrite,
		PermMachineRead, PermMachineWrite,
		PermCatalogRead,
	},
	RoleViewer: {
		PermStockRead, PermGroceryRead, PermMachineRead,
		PermCatalogRead, PermReportRead,
	},
}

// ExpandRoles merges explicit permissions with those implied by roles.
// The admin role yields isAdmin=true.
func ExpandRoles(roles, permissions []string) (merged []string, isAdmin bool) {
	merged = slices.Clone(permissions)
	for _, r := range roles {
		if Role(r) == RoleAdmin {
			isAdmin = true
			continue
		}
		for _, p := range rolePermissions[Role(r)] {
			if !slices.Contains(merged, p) {
				merged = append(merged, p)
			}
		}
	}
	return merged, isAdmin
}

// AllBranches is the wildcard branch grant.
const AllBranches = appctx.AllBranches

// AccessScope defines the boundaries of data visibility for current request.
type AccessScope struct {
	// UserID is the authenticated user
	UserID string

	// IsAdmin bypasses branch filtering
	IsAdmin bool

	// AllowedBranches limits access to specific branches.
	// Empty = no access (unless IsAdmin)
	AllowedBranches []string
}

// NewAccessScope creates AccessScope from context.
func NewAccessScope(ctx context.Context) *AccessScope {
	user := appctx.GetUser(ctx)
	if user == nil {
		return &AccessScope{}
	}

	return &AccessScope{
		UserID:          user.UserID,
		IsAdmin:         user.IsAdmin,
		AllowedBranches: user.Branches,
	}
}

// CanAccessBranch checks if user can access branch.
func (s *AccessScope) CanAccessBranch(branch string) bool {
	if s.IsAdmin || slices.Contains(s.AllowedBranches, AllBranches) {
		return true
	}
	return slices.Contains(s.AllowedBranches, branch)
}

// RequireBranch returns Forbidden unless every branch is accessible.
func (s *AccessScope) RequireBranch(branches ...string) error {
	for _, b := range branches {
		if !s.CanAccessBranch(b) {
			return apperror.NewForbidden(
				fmt.Sprintf("no access to branch %s", b),
			).WithDetail("branch", b)
		}
	}
	return nil
}

// FilterBranches returns intersection of requested and allowed branches.
// An empty request means "every branch I can see"; nil with ok=true means unrestricted.
func (s *AccessScope) FilterBranches(requested []string) (branches []string, ok bool) {
	unrestricted := s.IsAdmin || slices.Contains(s.AllowedBranches, AllBranches)
	if len(requested) == 0 {
		if unrestricted {
			return nil, true
		}
		return s.AllowedBranches, len(s.AllowedBranches) > 0
	}
	if unrestricted {
		return requested, true
	}

	var result []string
	for _, b := range requested {
		if slices.Contains(s.AllowedBranches, b) {
			result = append(result, b)
		}
	}
	return result, len(result) > 0
}

// --- Context-based scope access ---

type scopeKey struct{}

// WithScope adds AccessScope to context.
func WithScope(ctx context.Context, scope *AccessScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// GetScope returns AccessScope from context.
func GetScope(ctx context.Context) *AccessScope {
	if v, ok := ctx.Value(scopeKey{}).(*AccessScope); ok {
		return v
	}
	return NewAccessScope(ctx)
}

// RequireBranch is shorthand for GetScope(ctx).RequireBranch(branches...).
func RequireBranch(ctx context.Context, branches ...string) error {
	return GetScope(ctx).RequireBranch(branches...)
}
