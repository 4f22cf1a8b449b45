package handlers

import (
	"strconv"

	"github.com/congregate/backend/internal/middleware"
	"github.com/congregate/backend/internal/services"
	"github.com/congregate/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type TeamHandler struct {
	teamService *services.TeamService
}

func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

func teamID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("teamId"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid team id")
		return 0, false
	}
	return uint(id), true
}

// requireTeamAdmin aborts unless the caller administers the team.
func (h *TeamHandler) requireTeamAdmin(c *gin.Context, id uint) bool {
	isAdmin, err := h.teamService.IsTeamAdmin(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return false
	}
	if !isAdmin {
		response.Forbidden(c, "team admin access required")
		return false
	}
	return true
}

type createTeamRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"max=500"`
}

// Create creates a team in the caller's church
// POST /api/teams
func (h *TeamHandler) Create(c *gin.Context) {
	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	team, err := h.teamService.CreateTeam(c.Request.Context(),
		middleware.GetChurchID(c), middleware.GetUserID(c), req.Name, req.Description)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, team)
}

// List returns the caller's church teams
// GET /api/teams
func (h *TeamHandler) List(c *gin.Context) {
	teams, err := h.teamService.ListChurchTeams(c.Request.Context(), middleware.GetChurchID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, teams)
}

// GetByID returns one team
// GET /api/teams/:teamId
func (h *TeamHandler) GetByID(c *gin.Context) {
	id, ok := teamID(c)
	if !ok {
		return
	}

	team, err := h.teamService.GetTeam(c.Request.Context(), middleware.GetChurchID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, team)
}

type teamMemberRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role"`
}

// AddMember adds a user to the team
// POST /api/teams/:teamId/members
func (h *TeamHandler) AddMember(c *gin.Context) {
	id, ok := teamID(c)
	if !ok {
		return
	}
	if !h.requireTeamAdmin(c, id) {
		return
	}

	var req teamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.teamService.AddMember(c.Request.Context(), id, req.UserID, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, member)
}

// ListMembers returns the team roster
// GET /api/teams/:teamId/members
func (h *TeamHandler) ListMembers(c *gin.Context) {
	id, ok := teamID(c)
	if !ok {
		return
	}

	members, err := h.teamService.ListMembers(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, members)
}

// UpdateMemberRole switches a member between admin and member
// PUT /api/teams/:teamId/members/:userId
func (h *TeamHandler) UpdateMemberRole(c *gin.Context) {
	id, ok := teamID(c)
	if !ok {
		return
	}
	if !h.requireTeamAdmin(c, id) {
		return
	}

	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.teamService.UpdateMemberRole(c.Request.Context(), id, uint(userID), req.Role); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// RemoveMember drops a user from the team
// DELETE /api/teams/:teamId/members/:userId
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	id, ok := teamID(c)
	if !ok {
		return
	}
	if !h.requireTeamAdmin(c, id) {
		return
	}

	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	if err := h.teamService.RemoveMember(c.Request.Context(), id, uint(userID)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// CreateGroup adds a group to the team
// POST /api/teams/:teamId/groups
func (h *TeamHandler) CreateGroup(c *gin.Context) {
	id, ok := teamID(c)
	if !ok {
		return
	}
	if !h.requireTeamAdmin(c, id) {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	group, err := h.teamService.CreateGroup(c.Request.Context(), id, req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, group)
}

// ListGroups returns the team's groups
// GET /api/teams/:teamId/groups
func (h *TeamHandler) ListGroups(c *gin.Context) {
	id, ok := teamID(c)
	if !ok {
		return
	}

	groups, err := h.teamService.ListGroups(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, groups)
}

type assignGroupRequest struct {
	GroupID uint `json:"group_id" binding:"required"`
	UserID  uint `json:"user_id" binding:"required"`
}

// AssignGroup places a member into a group
// POST /api/teams/:teamId/groups/assign
func (h *TeamHandler) AssignGroup(c *gin.Context) {
	id, ok := teamID(c)
	if !ok {
		return
	}
	if !h.requireTeamAdmin(c, id) {
		return
	}

	var req assignGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.teamService.AssignMemberToGroup(c.Request.Context(), id, req.GroupID, req.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}

// MyGroup returns the caller's group within the team, if any
// GET /api/teams/:teamId/groups/mine
func (h *TeamHandler) MyGroup(c *gin.Context) {
	id, ok := teamID(c)
	if !ok {
		return
	}

	group, err := h.teamService.GetUserGroupForTeam(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, group)
}
