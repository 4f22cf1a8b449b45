package handlers

import (
	"strconv"
	"time"

	"github.com/congregate/backend/internal/middleware"
	"github.com/congregate/backend/internal/services"
	"github.com/congregate/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type CalendarHandler struct {
	calendarService *services.CalendarService
	teamService     *services.TeamService
}

func NewCalendarHandler(calendarService *services.CalendarService, teamService *services.TeamService) *CalendarHandler {
	return &CalendarHandler{calendarService: calendarService, teamService: teamService}
}

type createEventRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description" binding:"max=1000"`
	Location    string    `json:"location" binding:"max=300"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	EndsAt      time.Time `json:"ends_at"`
	AttendeeIDs []uint    `json:"attendee_ids"`
}

// CreateEvent schedules a team event
// POST /api/teams/:teamId/events
func (h *CalendarHandler) CreateEvent(c *gin.Context) {
	id, ok := teamID(c)
	if !ok {
		return
	}

	isAdmin, err := h.teamService.IsTeamAdmin(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !isAdmin {
		response.Forbidden(c, "team admin access required")
		return
	}

	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	event, err := h.calendarService.CreateEvent(c.Request.Context(), id, middleware.GetUserID(c),
		req.Title, req.Description, req.Location, req.StartsAt, req.EndsAt, req.AttendeeIDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, event)
}

// ListEvents returns the team's events within an optional window
// GET /api/teams/:teamId/events?from=...&to=...
func (h *CalendarHandler) ListEvents(c *gin.Context) {
	id, ok := teamID(c)
	if !ok {
		return
	}

	var from, to time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(c, "invalid from timestamp")
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(c, "invalid to timestamp")
			return
		}
		to = t
	}

	events, err := h.calendarService.ListEvents(c.Request.Context(), id, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, events)
}

// GetEvent returns one event with its business-day annotation
// GET /api/teams/:teamId/events/:eventId
func (h *CalendarHandler) GetEvent(c *gin.Context) {
	id, ok := teamID(c)
	if !ok {
		return
	}

	eventID, err := strconv.ParseUint(c.Param("eventId"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	event, err := h.calendarService.GetEvent(c.Request.Context(), id, uint(eventID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, event)
}

// DeleteEvent removes an event
// DELETE /api/teams/:teamId/events/:eventId
func (h *CalendarHandler) DeleteEvent(c *gin.Context) {
	id, ok := teamID(c)
	if !ok {
		return
	}

	isAdmin, err := h.teamService.IsTeamAdmin(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !isAdmin {
		response.Forbidden(c, "team admin access required")
		return
	}

	eventID, err := strconv.ParseUint(c.Param("eventId"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	if err := h.calendarService.DeleteEvent(c.Request.Context(), id, uint(eventID)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// SetAttendance records the caller's going/declined answer
// POST /api/teams/:teamId/events/:eventId/attendance
func (h *CalendarHandler) SetAttendance(c *gin.Context) {
	eventID, err := strconv.ParseUint(c.Param("eventId"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.calendarService.SetAttendance(c.Request.Context(), uint(eventID), middleware.GetUserID(c), req.Status); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}
