package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxCallerClaims = "pest_caller_claims"

// RequireCaller is Gin middleware that rejects requests without a valid
// Bearer caller token. On success the claims are stored in the context.
func RequireCaller(tokens *CallerTokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"ok":      false,
				"error":   http.StatusUnauthorized,
				"message": "Bearer token required",
			})
			return
		}

		claims, err := tokens.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"ok":      false,
				"error":   http.StatusUnauthorized,
				"message": "invalid token: " + err.Error(),
			})
			return
		}

		c.Set(ctxCallerClaims, claims)
		c.Next()
	}
}

// CallerFromCtx returns the caller claims set by RequireCaller, or nil.
func CallerFromCtx(c *gin.Context) *CallerClaims {
	v, _ := c.Get(ctxCallerClaims)
	claims, _ := v.(*CallerClaims)
	return claims
}
