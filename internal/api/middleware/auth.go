package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finlead/membership-backend/internal/service"
	"github.com/finlead/membership-backend/internal/types"
)

// AuthMiddleware validates JWT tokens and sets member context
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Printf("❌ [Auth] Missing Authorization header - Path: %s", c.Request.URL.Path)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			log.Printf("❌ [Auth] Invalid header format - Path: %s", c.Request.URL.Path)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			log.Printf("❌ [Auth] Invalid token - Path: %s, Error: %v", c.Request.URL.Path, err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("memberID", claims.MemberID)
		c.Set("memberRole", claims.Role)
		c.Next()
	}
}

// CronAuthMiddleware guards the reconciliation job endpoints. The external
// scheduler presents a shared secret as a bearer token; an empty configured
// secret disables the endpoints entirely.
func CronAuthMiddleware(cronSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cronSecret == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Job endpoints are disabled"})
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" ||
			subtle.ConstantTimeCompare([]byte(parts[1]), []byte(cronSecret)) != 1 {
			log.Printf("❌ [CronAuth] Rejected job invocation - Path: %s", c.Request.URL.Path)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid job credentials"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole lets only the listed roles through. Must run after
// AuthMiddleware.
func RequireRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetMemberRole(c)
		for _, r := range roles {
			if role == string(r) {
				c.Next()
				return
			}
		}
		log.Printf("❌ [Auth] Insufficient role %q - Path: %s", role, c.Request.URL.Path)
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		c.Abort()
	}
}

// RequireSelfOrRole lets a member act on their own :id, and the listed
// roles act on anyone. Must run after AuthMiddleware.
func RequireSelfOrRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.Param("id"); id != "" && id == GetMemberID(c) {
			c.Next()
			return
		}
		role := GetMemberRole(c)
		for _, r := range roles {
			if role == string(r) {
				c.Next()
				return
			}
		}
		log.Printf("❌ [Auth] Insufficient role %q - Path: %s", role, c.Request.URL.Path)
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		c.Abort()
	}
}

// RequestLogger logs all incoming requests with details
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		statusEmoji := "✅"
		if status >= 400 && status < 500 {
			statusEmoji = "⚠️"
		} else if status >= 500 {
			statusEmoji = "❌"
		}

		log.Printf("%s [%s] %s %d - %v", statusEmoji, method, path, status, duration)
	}
}

// GetMemberID extracts the authenticated member ID from gin context
func GetMemberID(c *gin.Context) string {
	memberID, exists := c.Get("memberID")
	if !exists {
		return ""
	}
	return memberID.(string)
}

// GetMemberRole extracts the authenticated member's role from gin context
func GetMemberRole(c *gin.Context) string {
	role, exists := c.Get("memberRole")
	if !exists {
		return ""
	}
	return role.(string)
}

// RequireMemberID returns error if member ID is not in context
func RequireMemberID(c *gin.Context) (string, bool) {
	memberID := GetMemberID(c)
	if memberID == "" {
		log.Printf("❌ [Auth] Member not authenticated - Path: %s", c.Request.URL.Path)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return "", false
	}
	return memberID, true
}
