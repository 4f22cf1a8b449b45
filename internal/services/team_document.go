package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/pkg/apperr"
	"github.com/congregate/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TeamDocumentService tracks uploaded document metadata per team. Bodies
// live in external storage; this service only records them.
type TeamDocumentService struct {
	db *gorm.DB
}

func NewTeamDocumentService(db *gorm.DB) *TeamDocumentService {
	return &TeamDocumentService{db: db}
}

// RecordUpload registers an uploaded document and returns its opaque id.
func (s *TeamDocumentService) RecordUpload(ctx context.Context, teamID, uploaderID uint, name, contentType string, sizeBytes int64, storagePath string) (*models.TeamDocument, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.CodeValidation, "document name is required")
	}
	if sizeBytes < 0 {
		return nil, apperr.New(apperr.CodeValidation, "document size cannot be negative")
	}

	doc := models.TeamDocument{
		DocumentID:  uuid.NewString(),
		TeamID:      teamID,
		Name:        name,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		StoragePath: storagePath,
		UploadedBy:  uploaderID,
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return nil, apperr.Normalize(err)
	}

	logger.Info().Str("document_id", doc.DocumentID).Uint("team_id", teamID).Msg("document recorded")
	return &doc, nil
}

// GetDocument looks up a document by its opaque id within a team.
func (s *TeamDocumentService) GetDocument(ctx context.Context, teamID uint, documentID string) (*models.TeamDocument, error) {
	var doc models.TeamDocument
	err := s.db.WithContext(ctx).
		Where("document_id = ? AND team_id = ?", documentID, teamID).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, fmt.Sprintf("document %s not found", documentID))
		}
		return nil, apperr.Normalize(err)
	}
	return &doc, nil
}

// ListDocuments returns the team's documents, newest first.
func (s *TeamDocumentService) ListDocuments(ctx context.Context, teamID uint) ([]models.TeamDocument, error) {
	var docs []models.TeamDocument
	err := s.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, apperr.Normalize(err)
	}
	return docs, nil
}

// RenameDocument changes the display name only.
func (s *TeamDocumentService) RenameDocument(ctx context.Context, teamID uint, documentID, name string) (*models.TeamDocument, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.CodeValidation, "document name is required")
	}

	result := s.db.WithContext(ctx).Model(&models.TeamDocument{}).
		Where("document_id = ? AND team_id = ?", documentID, teamID).
		Update("name", name)
	if result.Error != nil {
		return nil, apperr.Normalize(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.New(apperr.CodeNotFound, fmt.Sprintf("document %s not found", documentID))
	}
	return s.GetDocument(ctx, teamID, documentID)
}

// DeleteDocument removes the metadata row. The storage object is cleaned
// up out of band.
func (s *TeamDocumentService) DeleteDocument(ctx context.Context, teamID uint, documentID string) error {
	result := s.db.WithContext(ctx).
		Where("document_id = ? AND team_id = ?", documentID, teamID).
		Delete(&models.TeamDocument{})
	if result.Error != nil {
		return apperr.Normalize(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.CodeNotFound, fmt.Sprintf("document %s not found", documentID))
	}
	return nil
}
