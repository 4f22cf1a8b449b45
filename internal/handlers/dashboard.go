package handlers

import (
	"github.com/congregate/backend/internal/middleware"
	"github.com/congregate/backend/internal/services"
	"github.com/congregate/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: services.NewDashboardService(db),
	}
}

// GetStats returns headline counts and the request trend for the caller's church
// GET /api/dashboard/stats
func (h *DashboardHandler) GetStats(c *gin.Context) {
	resp, err := h.dashboardService.GetStats(c.Request.Context(), middleware.GetChurchID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}
