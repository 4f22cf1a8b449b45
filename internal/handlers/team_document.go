package handlers

import (
	"github.com/congregate/backend/internal/middleware"
	"github.com/congregate/backend/internal/services"
	"github.com/congregate/backend/pkg/response"
	"github.com/gin-gonic/gin"
)

type TeamDocumentHandler struct {
	documentService *services.TeamDocumentService
	teamService     *services.TeamService
}

func NewTeamDocumentHandler(documentService *services.TeamDocumentService, teamService *services.TeamService) *TeamDocumentHandler {
	return &TeamDocumentHandler{documentService: documentService, teamService: teamService}
}

type recordDocumentRequest struct {
	Name        string `json:"name" binding:"required"`
	ContentType string `json:"content_type" binding:"max=100"`
	SizeBytes   int64  `json:"size_bytes"`
	StoragePath string `json:"storage_path" binding:"required,max=500"`
}

// Record registers uploaded document metadata
// POST /api/teams/:teamId/documents
func (h *TeamDocumentHandler) Record(c *gin.Context) {
	id, ok := teamID(c)
	if !ok {
		return
	}

	isMember, err := h.teamService.IsTeamMember(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !isMember {
		response.Forbidden(c, "team membership required")
		return
	}

	var req recordDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	doc, err := h.documentService.RecordUpload(c.Request.Context(), id, middleware.GetUserID(c),
		req.Name, req.ContentType, req.SizeBytes, req.StoragePath)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, doc)
}

// List returns the team's documents, newest first
// GET /api/teams/:teamId/documents
func (h *TeamDocumentHandler) List(c *gin.Context) {
	id, ok := teamID(c)
	if !ok {
		return
	}

	docs, err := h.documentService.ListDocuments(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, docs)
}

// Get returns one document by its opaque id
// GET /api/teams/:teamId/documents/:documentId
func (h *TeamDocumentHandler) Get(c *gin.Context) {
	id, ok := teamID(c)
	if !ok {
		return
	}

	doc, err := h.documentService.GetDocument(c.Request.Context(), id, c.Param("documentId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, doc)
}

// Delete removes document metadata
// DELETE /api/teams/:teamId/documents/:documentId
func (h *TeamDocumentHandler) Delete(c *gin.Context) {
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

	if err := h.documentService.DeleteDocument(c.Request.Context(), id, c.Param("documentId")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, nil)
}
