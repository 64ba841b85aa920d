package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stijnblommerde/restaurant-menu/internal/models"
)

// RequirePermission gates a route on the principal's role mask. Anonymous
// principals are unauthorized; authenticated ones lacking a bit are
// forbidden.
func RequirePermission(perm models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFrom(c)
		if !principal.IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if !principal.Can(perm) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}
