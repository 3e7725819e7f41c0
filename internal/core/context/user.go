// Package context carries the caller's identity and trace ids on a context.Context.
package context

import (
	"context"
	"slices"
)

// AllBranches in Branches grants every branch.
const AllBranches = "*"

// UserContext is the authenticated caller.
type UserContext struct {
	UserID      string
	Email       string
	Roles       []string
	Permissions []string
	// Branches lists the branch codes the caller may read and mutate.
	Branches  []string
	IsAdmin   bool
	SessionID string
}

func (u *UserContext) HasPermission(code string) bool {
	return u != nil && (u.IsAdmin || slices.Contains(u.Permissions, code))
}

func (u *UserContext) HasRole(role string) bool {
	return u != nil && slices.Contains(u.Roles, role)
}

func (u *UserContext) HasBranchAccess(branch string) bool {
	if u == nil {
		return false
	}
	return u.IsAdmin || slices.Contains(u.Branches, AllBranches) || slices.Contains(u.Branches, branch)
}

type userKey struct{}

func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// GetUser returns nil for unauthenticated contexts.
func GetUser(ctx context.Context) *UserContext {
	u, _ := ctx.Value(userKey{}).(*UserContext)
	return u
}

func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// HasBranchAccess is GetUser(ctx).HasBranchAccess(branch).
func HasBranchAccess(ctx context.Context, branch string) bool {
	return GetUser(ctx).HasBranchAccess(branch)
}
