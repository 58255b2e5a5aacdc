package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"annadan-api/auth"
	"annadan-api/models"
	"annadan-api/store"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID  = "userID"
	ctxRole    = "role"
	ctxAuthErr = "authError"
)

// AuthRequired validates the bearer token and injects the caller into context
func AuthRequired(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := tokens.ParseToken(bearerToken(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, string(claims.Role))
		c.Next()
	}
}

// OptionalAuth injects the caller when a valid token is present and lets
// every other request through anonymously. The token error, if any, is kept
// for handlers that need a caller only for some queries.
func OptionalAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			c.Next()
			return
		}
		claims, err := tokens.ParseToken(tokenStr)
		if err != nil {
			c.Set(ctxAuthErr, err)
			c.Next()
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, string(claims.Role))
		c.Next()
	}
}

// AuthError returns why OptionalAuth left the request anonymous
func AuthError(c *gin.Context) error {
	if v, ok := c.Get(ctxAuthErr); ok {
		if err, ok := v.(error); ok {
			return err
		}
	}
	return auth.ErrMissingToken
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

type UserLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// AdminRequired reads the caller's role from the users table, so a demoted
// admin loses access before their token expires. Must run after AuthRequired.
func AdminRequired(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.ErrMissingToken.Error()})
			return
		}
		user, err := users.GetUser(c.Request.Context(), userID)
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if user.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated caller, or "" for anonymous requests
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func GetRole(c *gin.Context) models.UserRole {
	return models.UserRole(c.GetString(ctxRole))
}
