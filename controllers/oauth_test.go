package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushare/noteshelf/utils"
)

func callbackContext(w *httptest.ResponseRecorder, query string) *gin.Context {
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/auth/github/callback"+query, nil)
	return ctx
}

func TestGitHubLoginRequiresConfiguration(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db, _ := newTestDB(t)
	a := NewAuthController(db)

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/auth/github/login", nil)
	a.GitHubLogin(ctx)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGitHubCallbackMissingParams(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db, mock := newTestDB(t)
	a := NewAuthController(db)

	for _, query := range []string{"", "?code=abc", "?state=xyz"} {
		w := httptest.NewRecorder()
		a.GitHubCallback(callbackContext(w, query))
		assert.Equal(t, http.StatusBadRequest, w.Code, "query %q", query)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGitHubCallbackRejectsUnknownState(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db, mock := newTestDB(t)
	a := NewAuthController(db)

	w := httptest.NewRecorder()
	a.GitHubCallback(callbackContext(w, "?code=abc&state=never-issued"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or expired state")
	assert.NoError(t, mock.ExpectationsWereMet(), "an unknown state must fail before any lookup")
}

func TestGitHubCallbackStateIsSingleUse(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db, _ := newTestDB(t)
	a := NewAuthController(db)

	utils.SaveState("issued-once", 10*time.Minute)
	require.True(t, utils.ConsumeState("issued-once"))

	// replaying the state after it was consumed is rejected
	w := httptest.NewRecorder()
	a.GitHubCallback(callbackContext(w, "?code=abc&state=issued-once"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFindOrCreateOAuthUserReturnsExisting(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db, mock := newTestDB(t)
	a := NewAuthController(db)

	mock.ExpectQuery("SELECT (.+) FROM `users` WHERE provider = (.+) AND provider_id = (.+)").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "provider", "provider_id"}).
			AddRow(7, "octocat", "github", "583231"))

	user, err := a.findOrCreateOAuthUser("github", &oauthUser{ID: "583231", Username: "octocat"})
	require.NoError(t, err)
	assert.Equal(t, uint(7), user.ID)
	assert.Equal(t, "octocat", user.Username)
	assert.NoError(t, mock.ExpectationsWereMet(), "a known identity must not be re-created")
}

func TestFindOrCreateOAuthUserCreatesOnFirstLogin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db, mock := newTestDB(t)
	a := NewAuthController(db)

	mock.ExpectQuery("SELECT (.+) FROM `users` WHERE provider = (.+) AND provider_id = (.+)").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT count(.+) FROM `users` WHERE username = (.+)").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnResult(sqlmock.NewResult(8, 1))

	user, err := a.findOrCreateOAuthUser("github", &oauthUser{ID: "583231", Username: "Octocat", Email: "octo@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "octocat", user.Username)
	assert.Equal(t, "github", user.Provider)
	assert.Equal(t, "583231", user.ProviderID)
	require.NotNil(t, user.Email)
	assert.Equal(t, "octo@example.com", *user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureUniqueUsernameSuffixes(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db, mock := newTestDB(t)
	a := NewAuthController(db)

	// "octocat" and "octocat_1" are taken, "octocat_2" is free
	mock.ExpectQuery("SELECT count(.+) FROM `users` WHERE username = (.+)").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT count(.+) FROM `users` WHERE username = (.+)").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT count(.+) FROM `users` WHERE username = (.+)").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	assert.Equal(t, "octocat_2", a.ensureUniqueUsername("Octocat", "github", "583231"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureUniqueUsernameFallsBackToProviderID(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db, mock := newTestDB(t)
	a := NewAuthController(db)

	mock.ExpectQuery("SELECT count(.+) FROM `users` WHERE username = (.+)").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	// a display name with nothing usable falls back to provider + id
	assert.Equal(t, "github_583231", a.ensureUniqueUsername("こんにちは", "github", "583231"))
}
