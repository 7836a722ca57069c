package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/hassan-nahid/school-of-music-server/errors"
	"github.com/hassan-nahid/school-of-music-server/logger"
	"github.com/hassan-nahid/school-of-music-server/models"
)

const PrincipalKey = "principal"

// TokenValidator returns the email a bearer token was issued for.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// RoleResolver looks up the stored role of an email.
type RoleResolver interface {
	ResolveRole(ctx context.Context, email string) (models.Role, error)
}

// AuthMiddleware verifies the bearer token and stores the caller's Principal in the context.
// The role is looked up once per request.
func AuthMiddleware(tokens TokenValidator, roles RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			apperrors.Abort(c, apperrors.ErrUnauthorized)
			return
		}

		email, err := tokens.ValidateToken(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			logger.Debug(c, "Rejected bearer token", zap.Error(err))
			apperrors.Abort(c, apperrors.ErrUnauthorized)
			return
		}

		role := models.RoleStudent
		if roles != nil {
			role, err = roles.ResolveRole(c.Request.Context(), email)
			if err != nil {
				logger.Error(c, "Failed to resolve role", err, zap.String("email", email))
				apperrors.Abort(c, apperrors.Store("Internal server error", err))
				return
			}
		}

		c.Set(PrincipalKey, models.Principal{Email: email, Role: role})
		c.Next()
	}
}

// GetPrincipal extracts the authenticated caller from the gin context.
func GetPrincipal(c *gin.Context) (models.Principal, bool) {
	val, ok := c.Get(PrincipalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := val.(models.Principal)
	return p, ok && p.Email != ""
}

// AdminOnly restricts access to admin role.
func AdminOnly() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}

// RequireRole lets the request through when the principal holds one of roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			apperrors.Abort(c, apperrors.ErrUnauthorized)
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		apperrors.Abort(c, apperrors.ErrForbidden)
	}
}
