package main

import (
	"github.com/congregate/backend/internal/middleware"
	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	db := models.GetDB()
	perms := svc.permissionService

	// Rate limiter for unauthenticated auth routes
	authLimiter := middleware.NewRateLimiter(5, 10)

	// Health check
	r.GET("/health", svc.healthHandler.CheckHealth)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public, rate limited)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/signup", svc.authHandler.SignUp)
			auth.POST("/signin", svc.authHandler.SignIn)
			auth.POST("/refresh", svc.authHandler.Refresh)
		}

		// Public church search
		api.GET("/churches", svc.churchHandler.Search)
		api.GET("/churches/:id", svc.churchHandler.GetByID)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.Me)
			protected.POST("/auth/signout", svc.authHandler.SignOut)

			// Churches
			protected.POST("/churches", svc.churchHandler.Register)
			protected.PUT("/churches/:id",
				middleware.RequirePermission(db, perms, "church:update"), svc.churchHandler.Update)
			protected.GET("/churches/members",
				middleware.RequirePermission(db, perms, "members:view"), svc.churchHandler.ListMembers)
			protected.DELETE("/churches/members/:userId",
				middleware.RequirePermission(db, perms, "members:remove"), svc.churchHandler.RemoveMember)

			// Membership requests
			protected.POST("/requests", svc.requestHandler.Create)
			protected.GET("/requests/mine", svc.requestHandler.ListMine)
			protected.POST("/requests/:id/cancel", svc.requestHandler.Cancel)
			protected.GET("/requests",
				middleware.RequirePermission(db, perms, "requests:view"), svc.requestHandler.ListForChurch)
			protected.POST("/requests/:id/accept",
				middleware.RequirePermission(db, perms, "requests:review"), svc.requestHandler.Accept)
			protected.POST("/requests/:id/decline",
				middleware.RequirePermission(db, perms, "requests:review"), svc.requestHandler.Decline)

			// Permissions and roles
			protected.GET("/permissions", svc.roleHandler.ListPermissions)
			protected.GET("/permissions/mine",
				middleware.RequirePermission(db, perms, "members:view"), svc.roleHandler.MyPermissions)
			protected.GET("/roles",
				middleware.RequirePermission(db, perms, "roles:view"), svc.roleHandler.List)
			protected.POST("/roles",
				middleware.RequirePermission(db, perms, "roles:create"), svc.roleHandler.Create)
			protected.PUT("/roles/:id",
				middleware.RequirePermission(db, perms, "roles:update"), svc.roleHandler.Update)
			protected.DELETE("/roles/:id",
				middleware.RequirePermission(db, perms, "roles:delete"), svc.roleHandler.Delete)
			protected.POST("/roles/assign",
				middleware.RequirePermission(db, perms, "roles:assign"), svc.roleHandler.Assign)
			protected.POST("/roles/revoke",
				middleware.RequirePermission(db, perms, "roles:assign"), svc.roleHandler.Revoke)

			// Teams
			protected.POST("/teams",
				middleware.RequirePermission(db, perms, "teams:create"), svc.teamHandler.Create)
			protected.GET("/teams",
				middleware.RequirePermission(db, perms, "members:view"), svc.teamHandler.List)
			protected.GET("/teams/:teamId",
				middleware.RequirePermission(db, perms, "members:view"), svc.teamHandler.GetByID)
			protected.POST("/teams/:teamId/members", svc.teamHandler.AddMember)
			protected.GET("/teams/:teamId/members", svc.teamHandler.ListMembers)
			protected.PUT("/teams/:teamId/members/:userId", svc.teamHandler.UpdateMemberRole)
			protected.DELETE("/teams/:teamId/members/:userId", svc.teamHandler.RemoveMember)
			protected.POST("/teams/:teamId/groups", svc.teamHandler.CreateGroup)
			protected.GET("/teams/:teamId/groups", svc.teamHandler.ListGroups)
			protected.POST("/teams/:teamId/groups/assign", svc.teamHandler.AssignGroup)
			protected.GET("/teams/:teamId/groups/mine", svc.teamHandler.MyGroup)

			// Team calendar
			protected.POST("/teams/:teamId/events", svc.calendarHandler.CreateEvent)
			protected.GET("/teams/:teamId/events", svc.calendarHandler.ListEvents)
			protected.GET("/teams/:teamId/events/:eventId", svc.calendarHandler.GetEvent)
			protected.DELETE("/teams/:teamId/events/:eventId", svc.calendarHandler.DeleteEvent)
			protected.POST("/teams/:teamId/events/:eventId/attendance", svc.calendarHandler.SetAttendance)

			// Team documents
			protected.POST("/teams/:teamId/documents", svc.documentHandler.Record)
			protected.GET("/teams/:teamId/documents", svc.documentHandler.List)
			protected.GET("/teams/:teamId/documents/:documentId", svc.documentHandler.Get)
			protected.DELETE("/teams/:teamId/documents/:documentId", svc.documentHandler.Delete)

			// User settings
			protected.GET("/settings", svc.settingHandler.List)
			protected.GET("/settings/:key", svc.settingHandler.Get)
			protected.PUT("/settings/:key", svc.settingHandler.Set)
			protected.DELETE("/settings/:key", svc.settingHandler.Delete)

			// Notifications
			protected.GET("/notifications", svc.notificationHandler.List)
			protected.POST("/notifications/:id/read", svc.notificationHandler.MarkRead)

			// Dashboard
			protected.GET("/dashboard/stats",
				middleware.RequirePermission(db, perms, "members:view"), svc.dashboardHandler.GetStats)

			// System logs
			protected.GET("/system-logs",
				middleware.RequirePermission(db, perms, "church:update"), svc.systemLogHandler.List)
			protected.GET("/system-logs/modules",
				middleware.RequirePermission(db, perms, "church:update"), svc.systemLogHandler.Modules)
		}
	}
}
