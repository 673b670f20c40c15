package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/storejobs/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through when the actor holds any of roles.
// It must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...user.Role) gin.HandlerFunc {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	message := "Role required: " + strings.Join(names, " or ")

	return func(c *gin.Context) {
		actor := ActorFromContext(c)

		if !actor.IsAuthenticated() {
			abortUnauthorized(c, "Missing identity context")
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": gin.H{
				"code":    "forbidden",
				"message": message,
			},
		})
	}
}
