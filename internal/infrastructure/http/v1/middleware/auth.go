package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"bakehouse/internal/core/apperror"
	appctx "bakehouse/internal/core/context"
)

// JWTValidator turns a bearer token into the caller's identity.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.UserContext, error)
}

// Auth requires "Authorization: Bearer <token>" and attaches the validated
// user to the request context.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.Header("WWW-Authenticate", `Bearer realm="bakehouse"`)
			abortWith(c, err)
			return
		}

		user, verr := validator.ValidateToken(token)
		if verr != nil {
			c.Header("WWW-Authenticate", `Bearer realm="bakehouse", error="invalid_token"`)
			abortWith(c, apperror.NewUnauthorized("invalid token"))
			return
		}

		c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), user))
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperror.NewUnauthorized("missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", apperror.NewUnauthorized("invalid authorization header format")
	}
	return token, nil
}
