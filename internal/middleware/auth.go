package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/dbelyakov/realvista/internal/auth"
	"github.com/dbelyakov/realvista/pkg/errors"
	"github.com/dbelyakov/realvista/pkg/response"
)

const (
	CtxClaimsKey  = "authClaims"
	CtxAdminIDKey = "adminID"
)

// Auth enforces bearer-token authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxAdminIDKey, claims.AdminID)

		c.Next()
	}
}
