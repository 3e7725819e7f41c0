// Package middleware holds the gin middleware chain of the v1 API.
package middleware

import (
	"github.com/gin-gonic/gin"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
)

// RequirePermission lets the request through only when the authenticated
// user holds perm. Admins hold every permission.
func RequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch user := appctx.GetUser(c.Request.Context()); {
		case user == nil:
			abortWith(c, apperror.NewUnauthorized("authentication required"))
		case !user.HasPermission(perm):
			abortWith(c, apperror.NewForbidden("insufficient permissions").
				WithDetail("required_permission", perm))
		default:
			c.Next()
		}
	}
}

// abortWith records err for ErrorHandler and stops the chain.
func abortWith(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
