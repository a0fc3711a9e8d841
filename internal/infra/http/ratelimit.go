package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mlte-team/mlte-sub000/internal/infra/ratelimit"

	"github.com/gin-gonic/gin"
)

func grantKey(c *gin.Context) ratelimit.GrantKey {
	return ratelimit.GrantKey{Username: c.PostForm("username"), ClientIP: c.ClientIP()}
}

// allowGrant counts a password grant attempt for key and writes the rate
// limit headers.
func (s *Server) allowGrant(c *gin.Context, key ratelimit.GrantKey) bool {
	if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
		return true
	}
	decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.rateLimitRequests, s.rateLimitWindow)
	if err != nil {
		s.logger.WarnContext(c.Request.Context(), "rate limiter unavailable", "error", err)
		if s.rateLimitFailClosed {
			writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable")
			return false
		}
		return true
	}
	writeRateLimitHeaders(c, decision)
	if !decision.Allowed {
		s.logger.InfoContext(c.Request.Context(), "password grant throttled", "username", key.Username, "client", key.ClientIP)
		writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
		return false
	}
	return true
}

// grantSucceeded clears the attempts of key.
func (s *Server) grantSucceeded(c *gin.Context, key ratelimit.GrantKey) {
	if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
		return
	}
	if err := s.rateLimiter.Forget(c.Request.Context(), key); err != nil {
		s.logger.WarnContext(c.Request.Context(), "rate limiter forget failed", "error", err)
	}
}

func writeRateLimitHeaders(c *gin.Context, decision ratelimit.Decision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}
