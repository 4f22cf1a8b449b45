package handlers

import (
	"strconv"

	"github.com/congregate/backend/internal/middleware"
	"github.com/congregate/backend/internal/services"
	"github.com/congregate/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ChurchHandler struct {
	churchService *services.ChurchService
}

func NewChurchHandler(db *gorm.DB, cache *services.PermissionCache) *ChurchHandler {
	return &ChurchHandler{
		churchService: services.NewChurchService(db, cache),
	}
}

type registerChurchRequest struct {
	Name         string `json:"name" binding:"required"`
	Denomination string `json:"denomination" binding:"max=100"`
	Location     string `json:"location" binding:"max=300"`
	Description  string `json:"description" binding:"max=2000"`
}

// Register creates a church with the caller as its Pastor
// POST /api/churches
func (h *ChurchHandler) Register(c *gin.Context) {
	var req registerChurchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	church, err := h.churchService.RegisterChurch(c.Request.Context(), userID,
		req.Name, req.Denomination, req.Location, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, church)
}

// Search lists churches matching optional name/denomination filters
// GET /api/churches
func (h *ChurchHandler) Search(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	result, err := h.churchService.SearchChurches(c.Request.Context(),
		c.Query("name"), c.Query("denomination"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetByID returns one church
// GET /api/churches/:id
func (h *ChurchHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid church id")
		return
	}

	church, err := h.churchService.GetChurch(c.Request.Context(), uint(id))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, church)
}

type updateChurchRequest struct {
	Name         *string `json:"name"`
	Denomination *string `json:"denomination"`
	Location     *string `json:"location"`
	Description  *string `json:"description"`
}

// Update edits the caller's church profile
// PUT /api/churches/:id
func (h *ChurchHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid church id")
		return
	}
	if uint(id) != middleware.GetChurchID(c) {
		response.Forbidden(c, "you may only edit your own church")
		return
	}

	var req updateChurchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Denomination != nil {
		updates["denomination"] = *req.Denomination
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) == 0 {
		response.BadRequest(c, "no fields to update")
		return
	}

	church, err := h.churchService.UpdateChurch(c.Request.Context(), uint(id), updates)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, church)
}

// ListMembers returns the caller's church roster
// GET /api/churches/members
func (h *ChurchHandler) ListMembers(c *gin.Context) {
	churchID := middleware.GetChurchID(c)

	members, err := h.churchService.ListChurchMembers(c.Request.Context(), churchID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, members)
}

// RemoveMember detaches a member from the caller's church
// DELETE /api/churches/members/:userId
func (h *ChurchHandler) RemoveMember(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	churchID := middleware.GetChurchID(c)
	if err := h.churchService.RemoveMember(c.Request.Context(), churchID, uint(userID)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}
