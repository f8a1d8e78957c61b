package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/config"
	"github.com/rfidaccess/access-control-backend/internal/handlers"
	"github.com/rfidaccess/access-control-backend/internal/middleware"
	"github.com/rfidaccess/access-control-backend/internal/models"
	"github.com/rfidaccess/access-control-backend/internal/services"
	"github.com/rfidaccess/access-control-backend/pkg/jwt"
)

// application holds what the router needs. Handlers of the other deployment stay nil.
type application struct {
	cfg          *config.Config
	logger       *logrus.Logger
	jwtService   *jwt.Service
	authService  *services.AuthService
	loginLimiter *services.RateLimitService
	store        handlers.Pinger

	verify    *handlers.VerifyHandler
	directory *handlers.DirectoryHandler
	activity  *handlers.ActivityHandler
	reports   *handlers.ReportHandler
	badges    *handlers.BadgeHandler
	door      *handlers.DoorHandler
	cron      *services.CronService
}

func (app *application) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(app.logger))

	corsConfig := cors.Config{
		AllowOrigins:     app.cfg.CORS.AllowedOrigins,
		AllowMethods:     app.cfg.CORS.AllowedMethods,
		AllowHeaders:     app.cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
	}
	if len(corsConfig.AllowOrigins) == 1 && corsConfig.AllowOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	var jobs handlers.JobReporter
	if app.cron != nil {
		jobs = app.cron
	}
	health := handlers.NewHealthHandler(app.store, jobs, app.cfg.Access.Backend, version, app.logger)

	// Reader-facing endpoints; readers do not authenticate
	router.GET("/verify", app.verify.Verify)
	router.GET("/status", app.verify.Status)
	router.GET("/health", health.Health)

	v1 := router.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(app.authService, app.loginLimiter, app.logger)
	auth := v1.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
	}

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(app.jwtService, app.authService, app.logger))
	protected.Use(middleware.RequireRole(models.OperatorRole))

	accessRoutes := protected.Group("/access")
	{
		accessRoutes.GET("/verify", app.verify.VerifyJSON)
		accessRoutes.GET("/stream", app.verify.Stream)
	}
	protected.GET("/system/jobs", health.Jobs)
	protected.POST("/system/jobs/calendar", health.RunCalendarJob)

	if app.directory != nil {
		teams := protected.Group("/teams")
		{
			teams.GET("", app.directory.ListTeams)
			teams.POST("", app.directory.CreateTeam)
			teams.GET("/:id", app.directory.GetTeam)
			teams.PUT("/:id", app.directory.UpdateTeam)
			teams.DELETE("/:id", app.directory.DeleteTeam)
		}

		positions := protected.Group("/positions")
		{
			positions.GET("", app.directory.ListPositions)
			positions.POST("", app.directory.CreatePosition)
			positions.GET("/:id", app.directory.GetPosition)
			positions.PUT("/:id", app.directory.UpdatePosition)
			positions.DELETE("/:id", app.directory.DeletePosition)
		}

		employees := protected.Group("/employees")
		{
			employees.GET("", app.directory.ListEmployees)
			employees.POST("", app.directory.CreateEmployee)
			employees.GET("/:rfid", app.directory.GetEmployee)
			employees.PUT("/:rfid", app.directory.UpdateEmployee)
			employees.DELETE("/:rfid", app.directory.DeleteEmployee)
			employees.GET("/:rfid/events", app.directory.EmployeeEvents)
		}
	}

	if app.activity != nil {
		events := protected.Group("/events")
		{
			events.GET("", app.activity.ListEvents)
			events.POST("", app.activity.CreateEvent)
			events.GET("/:id", app.activity.GetEvent)
			events.PUT("/:id", app.activity.UpdateEvent)
			events.DELETE("/:id", app.activity.DeleteEvent)
		}

		alerts := protected.Group("/alerts")
		{
			alerts.GET("", app.activity.ListAlerts)
			alerts.POST("", app.activity.CreateAlert)
			alerts.GET("/:id", app.activity.GetAlert)
			alerts.PUT("/:id", app.activity.UpdateAlert)
			alerts.DELETE("/:id", app.activity.DeleteAlert)
		}
	}

	if app.reports != nil {
		reports := protected.Group("/reports")
		{
			reports.GET("/recent-events", app.reports.RecentEvents)
			reports.GET("/roster", app.reports.Roster)
			reports.GET("/alerts", app.reports.Alerts)
			reports.GET("/employees/:rfid/summary", app.reports.EmployeeSummary)
			reports.GET("/dashboard", app.reports.Dashboard)
			reports.GET("/export/roster", app.reports.ExportRoster)
			reports.GET("/export/events", app.reports.ExportEvents)
			reports.GET("/export/alerts", app.reports.ExportAlerts)
		}
	}

	if app.badges != nil {
		badges := protected.Group("/badges")
		{
			badges.GET("", app.badges.List)
			badges.POST("", app.badges.Enroll)
			badges.GET("/:code", app.badges.Get)
			badges.PUT("/:code/status", app.badges.UpdateStatus)
			badges.DELETE("/:code", app.badges.Delete)
		}
		protected.GET("/access-logs", app.badges.RecentLogs)
	}

	if app.door != nil {
		door := protected.Group("/door")
		{
			door.GET("/status", app.door.Status)
			door.POST("/unlock", app.door.Unlock)
			door.POST("/lock", app.door.Lock)
			door.GET("/cards", app.door.Cards)
			door.POST("/cards", app.door.AddCard)
		}
	}

	return router
}
