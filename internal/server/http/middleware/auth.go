package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	pkgAuth "github.com/JamesxFarris/Sixxer/internal/pkg/auth"
)

// TokenAuthorizer validates operator bearer tokens.
type TokenAuthorizer interface {
	Authorize(token string) error
}

// OperatorAuth rejects requests without a valid operator bearer token.
func OperatorAuth(authorizer TokenAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := authorizer.Authorize(extractToken(c))
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, pkgAuth.ErrOperatorDisabled):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		}
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
