package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushare/noteshelf/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter() *gin.Engine {
	r := gin.New()
	r.GET("/protected", AuthRequired(), func(ctx *gin.Context) {
		userID := ctx.GetUint(ContextUserIDKey)
		username := ctx.GetString(ContextUsernameKey)
		ctx.JSON(http.StatusOK, gin.H{"user_id": userID, "username": username})
	})
	return r
}

func TestAuthRequiredNoToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	protectedRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredInvalidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"})
	protectedRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredValidCookie(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := utils.NewSessionToken(7, "bob", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	protectedRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":7`)
	assert.Contains(t, w.Body.String(), `"username":"bob"`)
}

func TestAuthRequiredBearerHeader(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := utils.NewSessionToken(9, "carol", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protectedRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":9`)
}

func TestAuthRequiredRevokedSession(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := utils.NewSessionToken(7, "bob", time.Hour)
	require.NoError(t, err)
	claims, err := utils.ParseSessionToken(token)
	require.NoError(t, err)
	utils.RevokeSession(claims.ID, claims.ExpiresAt.Time)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	protectedRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
