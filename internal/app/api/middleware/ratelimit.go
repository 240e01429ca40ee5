package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nextdigitalzone/jobdesk/pkg/apperr"
	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/ratelimit"
	"github.com/nextdigitalzone/jobdesk/pkg/response"
)

// RateLimitMiddleware throttles by client ip and fails closed when the
// limiter store cannot be consulted.
func RateLimitMiddleware(l *ratelimit.Limiter, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		lctx, err := l.Take(c.Request.Context(), c.ClientIP())
		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		if err != nil {
			logctx.FromGin(c, base).Warnw("rate_limited", "client_ip", c.ClientIP(), "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorMsg(response.APIResponseCodeTooManyRequests, apperr.PublicMessage(err)))
			return
		}
		c.Next()
	}
}
