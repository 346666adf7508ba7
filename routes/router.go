package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zidanindratama/be-gunasmash/config"
	"github.com/zidanindratama/be-gunasmash/controllers"
	"github.com/zidanindratama/be-gunasmash/middleware"
	"github.com/zidanindratama/be-gunasmash/models"
	"github.com/zidanindratama/be-gunasmash/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
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
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
	})

	loc := cfg.Location()
	authCtl := controllers.NewAuthController(db)
	userCtl := controllers.NewUserController(db)
	annCtl := controllers.NewAnnouncementController(db, loc)
	attCtl := controllers.NewAttendanceController(db, loc)
	blogCtl := controllers.NewBlogController(db)
	statsCtl := controllers.NewStatsController(db, loc)

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		limited := auth.Group("", middleware.RateLimitMiddleware())
		limited.POST("/register", authCtl.Register)
		limited.POST("/login", authCtl.Login)
		limited.POST("/refresh", authCtl.Refresh)

		authed := auth.Group("", middleware.AuthRequired())
		authed.POST("/logout", authCtl.Logout)
		authed.GET("/me", authCtl.Me)
		authed.PATCH("/me", authCtl.UpdateProfile)
	}

	announcements := api.Group("/announcements")
	{
		announcements.GET("", middleware.AuthRequired(), annCtl.List)
		announcements.GET("/:id", middleware.AuthRequired(), annCtl.Get)

		admin := announcements.Group("", middleware.AuthRequired(), middleware.RoleRequired(models.RoleAdmin))
		admin.POST("", annCtl.Create)
		admin.PUT("/:id", annCtl.Update)
		admin.DELETE("/:id", annCtl.Delete)
	}

	attendance := api.Group("/attendance", middleware.AuthRequired())
	{
		attendance.POST("/check-in", attCtl.CheckIn)

		admin := attendance.Group("", middleware.RoleRequired(models.RoleAdmin))
		admin.POST("/admin/check-in", attCtl.AdminCheckIn)
		admin.GET("/session/summary", attCtl.SessionSummary)
		admin.GET("/session/export", attCtl.ExportSessionCSV)
	}

	blogs := api.Group("/blogs")
	{
		blogs.GET("", blogCtl.List)
		blogs.GET("/:slug", blogCtl.Get)

		admin := blogs.Group("", middleware.AuthRequired(), middleware.RoleRequired(models.RoleAdmin))
		admin.POST("", blogCtl.Create)
		admin.PUT("/:slug", blogCtl.Update)
		admin.DELETE("/:slug", blogCtl.Delete)
	}

	users := api.Group("/users", middleware.AuthRequired(), middleware.RoleRequired(models.RoleAdmin))
	{
		users.GET("", userCtl.List)
		users.GET("/:id", userCtl.Get)
		users.POST("", userCtl.Create)
		users.PUT("/:id", userCtl.Update)
		users.PATCH("/:id/role", userCtl.UpdateRole)
		users.DELETE("/:id", userCtl.Delete)
		users.POST("/import", userCtl.ImportCSV)
		users.GET("/export/csv", userCtl.ExportCSV)
	}

	stats := api.Group("/stats", middleware.AuthRequired(), middleware.RoleRequired(models.RoleAdmin))
	{
		stats.GET("", statsCtl.Global)
		stats.GET("/attendance", statsCtl.Attendance)
	}

	return r
}
