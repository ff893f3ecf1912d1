package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fitora-backend/internal/cache"
	"fitora-backend/internal/platform/logger"
	"fitora-backend/internal/transport/http/response"
)

type Limiter interface {
	Allow(ctx context.Context, subject string) (cache.Decision, error)
}

// RateLimit throttles authenticated users. A limiter error lets the request
// through.
func RateLimit(limiter Limiter, log *logger.Logger) gin.HandlerFunc {
	log = log.With("component", "middleware.RateLimit")
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		userID, ok := UserID(c)
		if !ok {
			c.Next()
			return
		}

		decision, err := limiter.Allow(c.Request.Context(), strconv.FormatUint(uint64(userID), 10))
		if err != nil {
			log.Warn("rate limit check failed, allowing request", "user_id", userID, "error", err)
			c.Next()
			return
		}
		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			response.ErrorWithData(c, http.StatusTooManyRequests, response.CodeTooManyRequests,
				"rate limit exceeded", gin.H{"retry_after": retryAfter})
			c.Abort()
			return
		}
		c.Next()
	}
}
