package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campushare/noteshelf/config"
	"github.com/campushare/noteshelf/controllers"
	"github.com/campushare/noteshelf/middleware"
	"github.com/campushare/noteshelf/storage"
	"github.com/campushare/noteshelf/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, store storage.Store) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	noteController := controllers.NewNoteController(db, store)

	api := r.Group("/api")

	credentials := api.Group("")
	credentials.Use(middleware.RateLimitMiddleware())
	credentials.POST("/register", authController.Register)
	credentials.POST("/login", authController.Login)

	api.GET("/logout", authController.Logout)
	api.GET("/user", middleware.AuthRequired(), authController.Me)

	api.GET("/auth/github/login", authController.GitHubLogin)
	api.GET("/auth/github/callback", authController.GitHubCallback)

	api.POST("/upload_note", middleware.AuthRequired(), noteController.UploadNote)
	api.GET("/notes", middleware.AuthRequired(), noteController.ListNotes)

	r.GET("/uploads/:filename", middleware.AuthRequired(), noteController.DownloadNote)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
