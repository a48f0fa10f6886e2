package middleware

import (
	"github.com/gin-gonic/gin"

	"craftpos/internal/core/apperror"
	"craftpos/internal/core/security"
)

// Scope builds the caller's AccessScope from the authenticated user and
// stores it on the request context for the domain layer.
//
// Must run AFTER Auth middleware.
func Scope() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := security.NewAccessScope(c.Request.Context())
		ctx := security.WithScope(c.Request.Context(), scope)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequirePermission aborts the request unless the caller holds the permission.
func RequirePermission(perm security.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := security.GetScope(c.Request.Context())
		if scope.UserID == "" {
			_ = c.Error(apperror.NewUnauthorized("authentication required"))
			c.Abort()
			return
		}
		if err := scope.RequirePermission(perm); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}
