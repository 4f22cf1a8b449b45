package handlers

import (
	"strconv"

	"github.com/congregate/backend/internal/middleware"
	"github.com/congregate/backend/internal/services"
	"github.com/congregate/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	permissionService *services.PermissionService
}

func NewRoleHandler(permissionService *services.PermissionService) *RoleHandler {
	return &RoleHandler{permissionService: permissionService}
}

// ListPermissions returns the global permission catalog
// GET /api/permissions
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	permissions, err := h.permissionService.GetAllPermissions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, permissions)
}

// MyPermissions returns the caller's effective permission set
// GET /api/permissions/mine
func (h *RoleHandler) MyPermissions(c *gin.Context) {
	set, err := h.permissionService.GetUserPermissions(c.Request.Context(),
		middleware.GetUserID(c), middleware.GetChurchID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, set)
}

// List returns the caller's church roles
// GET /api/roles
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.permissionService.GetChurchRoles(c.Request.Context(), middleware.GetChurchID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, roles)
}

type roleRequest struct {
	Name           string   `json:"name" binding:"required"`
	Description    string   `json:"description" binding:"max=300"`
	PermissionKeys []string `json:"permission_keys"`
}

// Create creates a church role
// POST /api/roles
func (h *RoleHandler) Create(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	role, err := h.permissionService.CreateRole(c.Request.Context(), middleware.GetChurchID(c),
		req.Name, req.Description, req.PermissionKeys)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, role)
}

// Update edits a role and replaces its permission set
// PUT /api/roles/:id
func (h *RoleHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid role id")
		return
	}

	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	role, err := h.permissionService.UpdateRole(c.Request.Context(), middleware.GetChurchID(c), uint(id),
		req.Name, req.Description, req.PermissionKeys)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, role)
}

// Delete removes a role
// DELETE /api/roles/:id
func (h *RoleHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid role id")
		return
	}

	if err := h.permissionService.DeleteRole(c.Request.Context(), middleware.GetChurchID(c), uint(id)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

type assignRoleRequest struct {
	UserID uint `json:"user_id" binding:"required"`
	RoleID uint `json:"role_id" binding:"required"`
}

// Assign grants a role to a member
// POST /api/roles/assign
func (h *RoleHandler) Assign(c *gin.Context) {
	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	assignerID := middleware.GetUserID(c)
	if err := h.permissionService.AssignRoleToUser(c.Request.Context(), middleware.GetChurchID(c),
		req.UserID, req.RoleID, &assignerID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// Revoke removes a role from a member
// POST /api/roles/revoke
func (h *RoleHandler) Revoke(c *gin.Context) {
	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.permissionService.RemoveRoleFromUser(c.Request.Context(), middleware.GetChurchID(c),
		req.UserID, req.RoleID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}
