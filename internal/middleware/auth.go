package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stijnblommerde/restaurant-menu/internal/config"
	"github.com/stijnblommerde/restaurant-menu/internal/models"
	"github.com/stijnblommerde/restaurant-menu/internal/security"
	"github.com/stijnblommerde/restaurant-menu/internal/service"
)

const principalKey = "principal"

// Auth resolves the bearer token into an authenticated principal and pings
// the account's last-seen timestamp. Requests without a valid credential
// are rejected; handlers behind this middleware always see an
// authenticated principal.
func Auth(cfg *config.AppConfig, accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseAccessToken(tokenStr, cfg.Security.SecretKey)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		user, err := accounts.ResolveUser(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user_not_found"})
			return
		}

		_ = accounts.Ping(c.Request.Context(), user.ID)

		c.Set(principalKey, models.Authenticated(user))

		c.Next()
	}
}

// PrincipalFrom returns the request's principal; outside the Auth
// middleware it is the anonymous principal, never an error.
func PrincipalFrom(c *gin.Context) models.Principal {
	val, ok := c.Get(principalKey)
	if !ok {
		return models.Anonymous()
	}
	principal, ok := val.(models.Principal)
	if !ok {
		return models.Anonymous()
	}
	return principal
}
