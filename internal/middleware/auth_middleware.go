package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"game-server-tracker/configs"
	"game-server-tracker/internal/cache"
	"game-server-tracker/internal/response"
	"game-server-tracker/internal/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const authContextKey = "auth_context"

func extractPSK(c *gin.Context) string {
	psk := c.GetHeader("X-API-Key")
	if psk == "" {
		psk = c.Query("api_key")
	}
	return psk
}

// Auth returns the AuthContext resolved for this request. Requests that
// never went through an auth middleware count as anonymous.
func Auth(c *gin.Context) *services.AuthContext {
	if v, exists := c.Get(authContextKey); exists {
		if auth, ok := v.(*services.AuthContext); ok {
			return auth
		}
	}
	return &services.AuthContext{Anonymous: true}
}

// RequireAuth aborts the request unless a valid active PSK is presented.
func RequireAuth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		psk := extractPSK(c)
		if psk == "" {
			response.AbortError(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		auth, err := authService.Authenticate(psk)
		if err != nil {
			if err == services.ErrAuthenticationFailed {
				response.AbortError(c, http.StatusUnauthorized, "Authentication failed")
			} else {
				log.WithError(err).Error("credential lookup failed")
				response.AbortError(c, http.StatusInternalServerError, "Internal tracker error. See logs for more details.")
			}
			return
		}

		c.Set(authContextKey, auth)
		c.Next()
	}
}

// OptionalAuth resolves a PSK when one is presented but degrades to an
// anonymous context on absence or rejection instead of aborting. Store
// failures still abort: an unreachable credential table must not silently
// strip identity.
func OptionalAuth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, err := authService.Authenticate(extractPSK(c))
		if err != nil {
			if err != services.ErrAuthenticationFailed {
				log.WithError(err).Error("credential lookup failed")
				response.AbortError(c, http.StatusInternalServerError, "Internal tracker error. See logs for more details.")
				return
			}
			auth = &services.AuthContext{Anonymous: true}
		}
		c.Set(authContextKey, auth)
		c.Next()
	}
}

// RateLimit enforces a per-credential hourly budget on write endpoints.
// Counter failures fail open.
func RateLimit(cacheMgr *cache.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		psk := extractPSK(c)
		if psk == "" {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate_limit:%s:%s", psk, time.Now().Format("2006-01-02-15"))

		count, err := cacheMgr.Increment(key, 1)
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			cacheMgr.Set(key, count, time.Hour)
		}

		limit := configs.AppConfig.RateLimitPerHour
		if limit > 0 && count > int64(limit) {
			response.AbortError(c, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		c.Next()
	}
}

// ValidateJSON rejects mutating requests that do not carry a JSON body.
func ValidateJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPut {
			contentType := c.GetHeader("Content-Type")
			if !strings.Contains(contentType, "application/json") {
				response.AbortError(c, http.StatusBadRequest, "Content-Type must be application/json")
				return
			}
		}
		c.Next()
	}
}
