package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dbelyakov/realvista/pkg/logger"
	"github.com/dbelyakov/realvista/pkg/response"
)

// Recovery converts a handler panic into a plain 500 without leaking the
// panic value to the client.
func Recovery() gin.HandlerFunc {
	log := logger.WithModule("http")

	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				c.Abort()
				response.Error(c, nil)
			}
		}()
		c.Next()
	}
}
