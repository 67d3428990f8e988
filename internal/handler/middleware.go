package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/OxyHQ/mention-api/internal/auth"
	"github.com/OxyHQ/mention-api/internal/errs"
)

const identityKey = "identity"

// RequireAuth verifies the bearer token on every request and stores the
// resolved identity on the gin context. No identity, no handler.
func RequireAuth(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := verifier.Verify(bearerFrom(c))
		if err != nil {
			c.AbortWithStatusJSON(errs.HTTPStatus(err), gin.H{
				"code":  errs.Reason(err),
				"error": err.Error(),
			})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// identityOf returns the identity RequireAuth stored. Only reachable on
// routes behind the middleware.
func identityOf(c *gin.Context) auth.Identity {
	id, _ := c.Get(identityKey)
	identity, _ := id.(auth.Identity)
	return identity
}

func bearerFrom(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

func respondErr(c *gin.Context, err error) {
	c.JSON(errs.HTTPStatus(err), gin.H{
		"code":  errs.Reason(err),
		"error": err.Error(),
	})
}
