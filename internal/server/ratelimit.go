package server

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/surgeonmatch/gateway/internal/observability"
	"github.com/surgeonmatch/gateway/internal/ratelimit"
)

// Rate limit response headers, present on every authenticated request.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// RateLimitMiddleware enforces the per-key quota. It runs after
// authentication; the quota key is the key owner, shared across all
// endpoints. Rejected requests get a 429 with Retry-After.
func RateLimitMiddleware(limiter ratelimit.Limiter, windowSeconds int, logger observability.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			// Auth middleware did not run; nothing to count against.
			AbortUnauthorized(c)
			return
		}

		result, err := limiter.Allow(c.Request.Context(), principal.OwnerID)
		if err != nil {
			logger.Error("rate limiter failure",
				observability.String("keyOwner", principal.OwnerID),
				observability.Error(err))
			AbortRateLimited(c, 0, windowSeconds, windowSeconds)
			return
		}

		c.Header(HeaderRateLimitLimit, strconv.Itoa(result.Limit))
		c.Header(HeaderRateLimitRemaining, strconv.Itoa(result.Remaining))
		c.Header(HeaderRateLimitReset, strconv.Itoa(ceilSeconds(result.ResetAfter)))

		if !result.Allowed {
			AbortRateLimited(c, result.Limit, windowSeconds, ceilSeconds(result.RetryAfter))
			return
		}

		c.Next()
	}
}

// ceilSeconds rounds a duration up to whole seconds so a reported
// Retry-After never understates the wait.
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
