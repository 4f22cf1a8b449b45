package main

import (
	"github.com/congregate/backend/internal/config"
	"github.com/congregate/backend/internal/handlers"
	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/internal/services"
	"github.com/congregate/backend/internal/utils"
	"github.com/congregate/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg *config.Config

	permissionCache   *services.PermissionCache
	permissionService *services.PermissionService
	taskQueue         services.TaskQueue
	worker            *services.Worker
	digestService     *services.DigestService

	authHandler         *handlers.AuthHandler
	churchHandler       *handlers.ChurchHandler
	requestHandler      *handlers.MembershipRequestHandler
	roleHandler         *handlers.RoleHandler
	teamHandler         *handlers.TeamHandler
	calendarHandler     *handlers.CalendarHandler
	documentHandler     *handlers.TeamDocumentHandler
	settingHandler      *handlers.UserSettingHandler
	dashboardHandler    *handlers.DashboardHandler
	notificationHandler *handlers.NotificationHandler
	systemLogHandler    *handlers.SystemLogHandler
	healthHandler       *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Seed the permission catalog
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	db := models.GetDB()

	// Initialize system logger and housekeeping
	services.InitSystemLogger(db)

	permissionCache := services.NewPermissionCache()
	services.StartMaintenanceScheduler(db, permissionCache)

	permissionService := services.NewPermissionService(db, permissionCache)

	// Initialize task queue (uses Redis if enabled, otherwise sync mode)
	taskQueue := services.InitTaskQueue(cfg)
	notificationService := services.NewNotificationService(db, taskQueue)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(notificationService.Deliver)
	}

	// Start async worker if Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(notificationService.Deliver)
			worker.Start()
		}
	}

	requestService := services.NewMembershipRequestService(db, notificationService)
	teamService := services.NewTeamService(db)
	holidayService := services.NewHolidayService()
	calendarService := services.NewCalendarService(db, holidayService, "")
	documentService := services.NewTeamDocumentService(db)

	// Pending-request digest for reviewers
	digestService := services.NewDigestService(db, taskQueue, holidayService, "")
	if err := digestService.Start(&cfg.Digest); err != nil {
		logger.Warn().Err(err).Msg("Failed to start digest scheduler")
	}

	return &appServices{
		cfg:                 cfg,
		permissionCache:     permissionCache,
		permissionService:   permissionService,
		taskQueue:           taskQueue,
		worker:              worker,
		digestService:       digestService,
		authHandler:         handlers.NewAuthHandler(db, &cfg.JWT),
		churchHandler:       handlers.NewChurchHandler(db, permissionCache),
		requestHandler:      handlers.NewMembershipRequestHandler(requestService),
		roleHandler:         handlers.NewRoleHandler(permissionService),
		teamHandler:         handlers.NewTeamHandler(teamService),
		calendarHandler:     handlers.NewCalendarHandler(calendarService, teamService),
		documentHandler:     handlers.NewTeamDocumentHandler(documentService, teamService),
		settingHandler:      handlers.NewUserSettingHandler(db),
		dashboardHandler:    handlers.NewDashboardHandler(db),
		notificationHandler: handlers.NewNotificationHandler(notificationService),
		systemLogHandler:    handlers.NewSystemLogHandler(db),
		healthHandler:       handlers.NewHealthHandler(),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.digestService.Stop()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
}
