package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"gorm.io/gorm"

	"github.com/campushare/noteshelf/config"
	"github.com/campushare/noteshelf/middleware"
	"github.com/campushare/noteshelf/models"
	"github.com/campushare/noteshelf/utils"
)

// AuthController handles registration, session login/logout and the GitHub
// OAuth flow.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

func sessionTTL() time.Duration {
	return time.Duration(config.Get().SessionTTLHours) * time.Hour
}

// setSessionCookie establishes the session for subsequent requests. The
// token is also usable as a Bearer credential by non-browser clients.
func setSessionCookie(ctx *gin.Context, token string) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.SessionCookieName, token, int(sessionTTL().Seconds()), "/", "", false, true)
}

func clearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.SessionCookieName, "", -1, "/", "", false, true)
}

// userProfile is the public view of a user: no hash, no provider internals.
func userProfile(user models.User) gin.H {
	return gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	}
}

// Register handles local account registration with bcrypt hashing.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username and password are required")
		return
	}
	if len(req.Password) < 8 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "password must be at least 8 characters long")
		return
	}

	var existing models.User
	if err := a.db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40901, "username or email already exists")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{
		Username:     req.Username,
		PasswordHash: hash,
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		user.Email = &email
	}

	if err := a.db.Create(&user).Error; err != nil {
		// Covers the email unique index and the username pre-check race.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40901, "username or email already exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"success": true})
}

// Login verifies credentials (username or email as the identifier) and
// establishes the session. Failures never reveal which part was wrong.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid request payload")
		return
	}
	if (req.Username == "" && req.Email == "") || req.Password == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "username and password are required")
		return
	}

	var user models.User
	var err error
	if req.Username != "" {
		err = a.db.Where("username = ?", req.Username).First(&user).Error
	} else {
		err = a.db.Where("email = ?", req.Email).First(&user).Error
	}
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	token, err := utils.NewSessionToken(user.ID, user.Username, sessionTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to establish session")
		return
	}

	setSessionCookie(ctx, token)
	ctx.JSON(http.StatusOK, gin.H{
		"message": "login successful",
		"user":    userProfile(user),
	})
}

// Logout invalidates the session unconditionally. It succeeds even when no
// session exists, so it sits outside the auth middleware.
func (a *AuthController) Logout(ctx *gin.Context) {
	if token := middleware.SessionToken(ctx); token != "" {
		if claims, err := utils.ParseSessionToken(token); err == nil {
			expiresAt := time.Now().Add(sessionTTL())
			if claims.ExpiresAt != nil {
				expiresAt = claims.ExpiresAt.Time
			}
			utils.RevokeSession(claims.ID, expiresAt)
		}
	}
	clearSessionCookie(ctx)
	ctx.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's public profile. Users are
// never mutated in scope, so the profile is cacheable without invalidation.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	cacheKey := fmt.Sprintf("cache:user:profile:%d", userID)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to fetch user")
		return
	}

	payload := userProfile(user)
	utils.CacheSetJSON(cacheKey, payload, time.Hour)
	ctx.JSON(http.StatusOK, payload)
}

// GitHubLogin returns the provider authorization URL with a one-time state.
func (a *AuthController) GitHubLogin(ctx *gin.Context) {
	conf, err := a.githubConfig()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40006, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)

	url := conf.AuthCodeURL(state)
	ctx.JSON(http.StatusOK, gin.H{"authorization_url": url, "state": state})
}

// GitHubCallback exchanges the authorization code for a user identity and
// establishes the same session a password login would.
func (a *AuthController) GitHubCallback(ctx *gin.Context) {
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40007, "missing code or state")
		return
	}

	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40008, "invalid or expired state")
		return
	}

	conf, err := a.githubConfig()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40006, err.Error())
		return
	}

	oauthToken, err := conf.Exchange(context.Background(), code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40009, "failed to exchange code")
		return
	}

	identity, err := fetchGitHubUser(oauthToken)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to fetch github profile")
		return
	}

	user, err := a.findOrCreateOAuthUser("github", identity)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to persist user")
		return
	}

	token, err := utils.NewSessionToken(user.ID, user.Username, sessionTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to establish session")
		return
	}

	setSessionCookie(ctx, token)
	ctx.JSON(http.StatusOK, gin.H{
		"message": "login successful",
		"user":    userProfile(*user),
	})
}

func (a *AuthController) githubConfig() (*oauth2.Config, error) {
	cfg := config.Get()
	if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
		return nil, fmt.Errorf("github oauth not configured")
	}
	return &oauth2.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  fmt.Sprintf("%s/api/auth/github/callback", cfg.OAuthRedirectBase),
		Scopes:       []string{"read:user", "user:email"},
		Endpoint:     github.Endpoint,
	}, nil
}

type oauthUser struct {
	ID       string
	Username string
	Email    string
}

func (a *AuthController) findOrCreateOAuthUser(provider string, data *oauthUser) (*models.User, error) {
	var user models.User
	err := a.db.Where("provider = ? AND provider_id = ?", provider, data.ID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	username := a.ensureUniqueUsername(data.Username, provider, data.ID)
	user = models.User{
		Username:   username,
		Provider:   provider,
		ProviderID: data.ID,
	}
	if email := strings.TrimSpace(data.Email); email != "" {
		user.Email = &email
	}

	if err := a.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && user.Email != nil {
			// Email already claimed by a local account; register without it.
			user.Email = nil
			if retryErr := a.db.Create(&user).Error; retryErr == nil {
				return &user, nil
			}
		}
		return nil, err
	}
	return &user, nil
}

func sanitizeUsername(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	var builder strings.Builder
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			builder.WriteRune('_')
		}
	}
	return strings.Trim(builder.String(), "_")
}

func (a *AuthController) ensureUniqueUsername(base, provider, id string) string {
	base = sanitizeUsername(base)
	if base == "" {
		base = sanitizeUsername(fmt.Sprintf("%s_%s", provider, id))
		if base == "" {
			base = fmt.Sprintf("user_%s", id)
		}
	}

	candidate := base
	suffix := 1
	for {
		var count int64
		if err := a.db.Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return candidate
		}
		if count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", base, suffix)
		suffix++
	}
}

func fetchGitHubUser(token *oauth2.Token) (*oauthUser, error) {
	req, _ := http.NewRequest("GET", "https://api.github.com/user", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token.AccessToken))
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user info request failed: %s", resp.Status)
	}

	var payload struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	email := payload.Email
	if email == "" {
		email, _ = fetchGitHubEmail(token.AccessToken)
	}

	return &oauthUser{
		ID:       fmt.Sprintf("%d", payload.ID),
		Username: payload.Login,
		Email:    email,
	}, nil
}

func fetchGitHubEmail(accessToken string) (string, error) {
	req, _ := http.NewRequest("GET", "https://api.github.com/user/emails", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github emails request failed: %s", resp.Status)
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", err
	}

	for _, email := range emails {
		if email.Primary && email.Verified {
			return email.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", nil
}
