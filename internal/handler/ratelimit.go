package handler

import (
	"fmt"
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewGenerateRateLimiter ограничивает генерацию до limit запросов в минуту с одного IP.
func NewGenerateRateLimiter(limit uint, logger *zap.Logger) gin.HandlerFunc {
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: limit,
	})
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			logger.Warn("Rate limit exceeded",
				zap.String("client_ip", c.ClientIP()),
				zap.Time("reset_time", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Code:    ErrCodeRateLimited,
				Message: fmt.Sprintf("too many requests, try again in %s", time.Until(info.ResetTime).Round(time.Second)),
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}
