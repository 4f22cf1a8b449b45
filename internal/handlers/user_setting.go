package handlers

import (
	"github.com/congregate/backend/internal/middleware"
	"github.com/congregate/backend/internal/services"
	"github.com/congregate/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UserSettingHandler struct {
	settingService *services.UserSettingService
}

func NewUserSettingHandler(db *gorm.DB) *UserSettingHandler {
	return &UserSettingHandler{
		settingService: services.NewUserSettingService(db),
	}
}

// List returns all of the caller's settings keyed by name
// GET /api/settings
func (h *UserSettingHandler) List(c *gin.Context) {
	settings, err := h.settingService.ListSettings(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, settings)
}

// Get returns one setting
// GET /api/settings/:key
func (h *UserSettingHandler) Get(c *gin.Context) {
	setting, err := h.settingService.GetSetting(c.Request.Context(), middleware.GetUserID(c), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, setting)
}

type setSettingRequest struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

// Set upserts one setting
// PUT /api/settings/:key
func (h *UserSettingHandler) Set(c *gin.Context) {
	var req setSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	setting, err := h.settingService.SetSetting(c.Request.Context(), middleware.GetUserID(c),
		c.Param("key"), req.Value, req.Type)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, setting)
}

// Delete removes one setting
// DELETE /api/settings/:key
func (h *UserSettingHandler) Delete(c *gin.Context) {
	if err := h.settingService.DeleteSetting(c.Request.Context(), middleware.GetUserID(c), c.Param("key")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}
