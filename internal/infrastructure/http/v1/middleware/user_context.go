package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "bakehouse/internal/core/context"
	"bakehouse/internal/core/security"
)

// UserContext expands role grants and resolves the caller's branch access
// scope once per request. Services read it via security.GetScope(ctx).
//
// This middleware must run AFTER Auth middleware.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if user := appctx.GetUser(ctx); user != nil && len(user.Roles) > 0 {
			expanded := *user
			var admin bool
			expanded.Permissions, admin = security.ExpandRoles(user.Roles, user.Permissions)
			expanded.IsAdmin = expanded.IsAdmin || admin
			ctx = appctx.WithUser(ctx, &expanded)
		}
		ctx = security.WithScope(ctx, security.NewAccessScope(ctx))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
