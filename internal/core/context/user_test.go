package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserContext_HasBranchAccess(t *testing.T) {
	tests := []struct {
		name   string
		user   *UserContext
		branch string
		want   bool
	}{
		{"nil user", nil, "Main", false},
		{"admin", &UserContext{IsAdmin: true}, "Main", true},
		{"listed", &UserContext{Branches: []string{"Main", "North"}}, "North", true},
		{"not listed", &UserContext{Branches: []string{"Main"}}, "North", false},
		{"wildcard", &UserContext{Branches: []string{"*"}}, "South", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.HasBranchAccess(tt.branch))
		})
	}
}

func TestUserFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetUser(ctx))
	assert.Equal(t, "", GetUserID(ctx))
	assert.False(t, HasBranchAccess(ctx, "Main"))

	ctx = WithUser(ctx, &UserContext{UserID: "u1", Roles: []string{"manager"}, Permissions: []string{"stock:read"}})
	assert.Equal(t, "u1", GetUserID(ctx))
	assert.True(t, GetUser(ctx).HasRole("manager"))
	assert.False(t, GetUser(ctx).HasRole("admin"))
	assert.True(t, GetUser(ctx).HasPermission("stock:read"))
	assert.False(t, GetUser(ctx).HasPermission("stock:finish"))
}
