package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/access"
	"github.com/rfidaccess/access-control-backend/internal/config"
	"github.com/rfidaccess/access-control-backend/internal/database"
	"github.com/rfidaccess/access-control-backend/internal/database/qrstore"
	"github.com/rfidaccess/access-control-backend/internal/handlers"
	"github.com/rfidaccess/access-control-backend/internal/notify"
	"github.com/rfidaccess/access-control-backend/internal/services"
	"github.com/rfidaccess/access-control-backend/internal/transport/mqttbridge"
	"github.com/rfidaccess/access-control-backend/pkg/doorlock"
	"github.com/rfidaccess/access-control-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting access control backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Decision fan-out
	broadcaster := notify.NewBroadcaster()
	publishers := notify.Multi{broadcaster}

	if cfg.Redis.Enabled {
		redisClient := notify.NewRedisClient(cfg.Redis)
		defer redisClient.Close()
		redisPublisher := notify.NewRedisPublisher(redisClient, cfg.Redis.Channel, logger)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisPublisher.Ping(pingCtx); err != nil {
			logger.WithError(err).Warn("Redis not reachable, decisions will be retried per publish")
		}
		cancel()
		publishers = append(publishers, redisPublisher)
		logger.WithField("channel", cfg.Redis.Channel).Info("Redis decision publisher enabled")
	}

	var doorHandler *handlers.DoorHandler
	if cfg.Door.Enabled {
		door := doorlock.NewClient(cfg.Door.BaseURL, cfg.Door.Timeout)
		publishers = append(publishers, notify.NewDoorPublisher(door, cfg.Door.Timeout, logger))
		doorHandler = handlers.NewDoorHandler(door, logger)
		logger.WithField("url", cfg.Door.BaseURL).Info("Door controller unlock enabled")
	}

	// Services shared by both deployments
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	authService := services.NewAuthService(cfg.Operator, jwtService, cfg.JWT, logger)
	loginLimiter := services.NewRateLimitService(services.DefaultRateLimitConfig())

	app := &application{
		cfg:          cfg,
		logger:       logger,
		jwtService:   jwtService,
		authService:  authService,
		loginLimiter: loginLimiter,
		door:         doorHandler,
	}

	var backend access.Backend
	var closeStore io.Closer
	var calendarService *services.CalendarService

	switch cfg.Access.Backend {
	case config.BackendQR:
		logger.WithField("path", cfg.QRDatabase.Path).Info("Opening QR access store...")
		store, err := qrstore.Open(cfg.QRDatabase, logger)
		if err != nil {
			logger.Fatalf("Failed to open QR access store: %v", err)
		}
		backend, closeStore = store, store
		app.store = store
		app.badges = handlers.NewBadgeHandler(store, logger)

	default:
		logger.Info("Connecting to database...")
		db, err := database.NewConnection(cfg.Database, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		closeStore = db
		logger.Info("Database connection established")

		if cfg.Database.RunMigrations {
			sqlDB, err := db.SQLDB()
			if err != nil {
				logger.Fatalf("Failed to get database for migrations: %v", err)
			}
			if err := database.RunMigrations(sqlDB, logger); err != nil {
				logger.Fatalf("Failed to run migrations: %v", err)
			}
		}

		backend = database.NewHRAccessBackend(db)
		app.store = db

		teamRepo := database.NewTeamRepository(db)
		positionRepo := database.NewPositionRepository(db)
		employeeRepo := database.NewEmployeeRepository(db)
		eventRepo := database.NewEventRepository(db)
		alertRepo := database.NewAlertRepository(db)
		reportRepo := database.NewReportRepository(db)
		calendarRepo := database.NewCalendarRepository(db)

		directoryService := services.NewDirectoryService(teamRepo, positionRepo, employeeRepo, logger)
		activityService := services.NewActivityService(eventRepo, alertRepo, logger)
		reportService := services.NewReportService(reportRepo, eventRepo, employeeRepo, alertRepo)
		exportService := services.NewExportService(reportService, logger)

		app.directory = handlers.NewDirectoryHandler(directoryService, activityService, logger)
		app.activity = handlers.NewActivityHandler(activityService, logger)
		app.reports = handlers.NewReportHandler(reportService, exportService, logger)

		calendarService = services.NewCalendarService(calendarRepo, logger)
	}
	defer closeStore.Close()

	cronService := services.NewCronService(calendarService, loginLimiter, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}
	app.cron = cronService
	logger.WithField("calendar", calendarService != nil).Info("Cron service started")

	accessService := services.NewAccessService(backend, publishers, cfg.Access, logger)
	app.verify = handlers.NewVerifyHandler(accessService, broadcaster, logger)

	// Optional MQTT reader bridge
	var bridge *mqttbridge.Bridge
	var mqttClient *mqttbridge.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqttbridge.NewClient(cfg.MQTT, func(topic string, err error) {
			logger.WithFields(logrus.Fields{"topic": topic, "error": err.Error()}).Warn("MQTT scan rejected")
		})
		if err != nil {
			logger.Fatalf("Failed to connect to MQTT broker: %v", err)
		}
		bridge = mqttbridge.NewBridge(mqttClient, accessService, cfg.MQTT.TopicPrefix, logger)
		if err := bridge.Start(); err != nil {
			logger.Fatalf("Failed to start MQTT bridge: %v", err)
		}
		logger.WithField("topic", bridge.ScanTopic()).Info("MQTT reader bridge started")
	}

	router := app.routes()

	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: the decision stream is long-lived
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s (backend: %s)", cfg.Server.Port, cfg.Access.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if bridge != nil {
		if err := bridge.Stop(); err != nil {
			logger.WithError(err).Warn("Failed to unsubscribe MQTT bridge")
		}
		mqttClient.Disconnect()
	}

	if cronService != nil {
		logger.Info("Stopping cron service...")
		cronService.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}
