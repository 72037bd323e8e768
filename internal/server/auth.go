package server

import (
	"github.com/gin-gonic/gin"

	"github.com/surgeonmatch/gateway/internal/auth"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "X-API-Key"

// principalKey is the gin context key holding the authenticated
// principal.
const principalKey = "principal"

// AuthMiddleware authenticates every request from the X-API-Key header.
// Requests without a valid, active key never reach rate limiting or
// business logic, so unauthenticated traffic cannot drain a real key's
// quota.
func AuthMiddleware(authenticator *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := authenticator.Authenticate(c.Request.Context(), c.GetHeader(APIKeyHeader))
		if err != nil {
			AbortUnauthorized(c)
			return
		}

		c.Set(principalKey, principal)
		c.Set("keyOwner", principal.OwnerID)
		c.Request = c.Request.WithContext(
			auth.ContextWithPrincipal(c.Request.Context(), principal))

		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal for the request.
func PrincipalFrom(c *gin.Context) (*auth.Principal, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*auth.Principal)
	return principal, ok
}
