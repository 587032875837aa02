package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per client IP. Webhook intake sits behind
// it so a misbehaving provider retry storm cannot saturate the queue.
func RateLimiter(rps rate.Limit, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	getLimiter := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		limiter, ok := limiters[key]
		if !ok {
			limiter = rate.NewLimiter(rps, burst)
			limiters[key] = limiter
		}
		return limiter
	}

	return func(c *gin.Context) {
		if !getLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ierr.ErrorResponse{
				Success: false,
				Error: ierr.ErrorDetail{
					Display: "Too many requests",
				},
			})
			return
		}
		c.Next()
	}
}
