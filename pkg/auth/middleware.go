package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	tokenHeader = "Authorization"
	tokenPrefix = "Bearer "
	claimsKey   = "auth_claims"
)

// Middleware creates a gin middleware that authenticates requests and
// injects the caller's claims into the request context.
func Middleware(signer *Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(tokenHeader)
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing authorization header"})
			return
		}

		if !strings.HasPrefix(authHeader, tokenPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid authorization header format"})
			return
		}

		claims, err := signer.Validate(strings.TrimPrefix(authHeader, tokenPrefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid or expired token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// GetClaims retrieves the caller's claims from the request context
func GetClaims(c *gin.Context) (*Claims, bool) {
	value, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*Claims)
	return claims, ok
}
