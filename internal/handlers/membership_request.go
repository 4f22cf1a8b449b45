package handlers

import (
	"github.com/congregate/backend/internal/middleware"
	"github.com/congregate/backend/internal/services"
	"github.com/congregate/backend/internal/store"
	"github.com/congregate/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type MembershipRequestHandler struct {
	requestService *services.MembershipRequestService
}

func NewMembershipRequestHandler(requestService *services.MembershipRequestService) *MembershipRequestHandler {
	return &MembershipRequestHandler{requestService: requestService}
}

// Create files a membership request for the caller
// POST /api/requests
func (h *MembershipRequestHandler) Create(c *gin.Context) {
	var req services.CreateRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := store.WithUser(c.Request.Context(), middleware.GetUserID(c))
	request, err := h.requestService.CreateRequest(ctx, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, request)
}

// ListMine returns the caller's requests, newest first
// GET /api/requests/mine
func (h *MembershipRequestHandler) ListMine(c *gin.Context) {
	items, err := h.requestService.ListMyRequests(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, items)
}

// ListForChurch returns the caller's church requests for review
// GET /api/requests
func (h *MembershipRequestHandler) ListForChurch(c *gin.Context) {
	churchID := middleware.GetChurchID(c)

	items, err := h.requestService.ListChurchRequests(c.Request.Context(), churchID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, items)
}

// Accept transitions a pending request to accepted. Scoped to the church
// where the caller holds requests:review.
// POST /api/requests/:id/accept
func (h *MembershipRequestHandler) Accept(c *gin.Context) {
	request, err := h.requestService.AcceptRequest(c.Request.Context(), c.Param("id"),
		middleware.GetChurchID(c), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, request)
}

// Decline transitions a pending request to declined. Scoped to the church
// where the caller holds requests:review.
// POST /api/requests/:id/decline
func (h *MembershipRequestHandler) Decline(c *gin.Context) {
	request, err := h.requestService.DeclineRequest(c.Request.Context(), c.Param("id"),
		middleware.GetChurchID(c), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, request)
}

// Cancel lets the requesting user withdraw a pending request
// POST /api/requests/:id/cancel
func (h *MembershipRequestHandler) Cancel(c *gin.Context) {
	request, err := h.requestService.CancelRequest(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, request)
}
