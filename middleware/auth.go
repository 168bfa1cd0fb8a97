package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campushare/noteshelf/utils"
)

const (
	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "noteshelf_session"
	// ContextUserIDKey is the key used to store the authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
)

// SessionToken extracts the raw session token from the session cookie or,
// as the equivalent for non-browser clients, from a Bearer Authorization
// header. Returns "" when neither is present.
func SessionToken(ctx *gin.Context) string {
	if cookie, err := ctx.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// AuthRequired ensures the request carries a valid, unrevoked session and
// threads the verified identity through the request context.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := SessionToken(ctx)
		if token == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication required")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseSessionToken(token)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid or expired session")
			ctx.Abort()
			return
		}

		if utils.IsSessionRevoked(claims.ID) {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "session revoked")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}
