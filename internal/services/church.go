package services

import (
	"context"
	"errors"
	"strings"

	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/internal/store"
	"github.com/congregate/backend/pkg/apperr"
	"github.com/congregate/backend/pkg/logger"
	"gorm.io/gorm"
)

// ChurchService owns church registration, profile and search.
type ChurchService struct {
	db       *gorm.DB
	cache    *PermissionCache
	churches *store.Gateway[models.Church]
}

func NewChurchService(db *gorm.DB, cache *PermissionCache) *ChurchService {
	return &ChurchService{
		db:    db,
		cache: cache,
		churches: store.NewGateway[models.Church](db, "churches",
			"id", "name", "denomination", "location", "created_at"),
	}
}

// RegisterChurch creates a church with its seeded system roles and makes
// the creator its Pastor, all in one transaction. The creator must not
// already belong to a church.
func (s *ChurchService) RegisterChurch(ctx context.Context, creatorID uint, name, denomination, location, description string) (*models.Church, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return nil, apperr.New(apperr.CodeValidation, "church name must be at least 2 characters")
	}

	var creator models.User
	if err := s.db.WithContext(ctx).First(&creator, creatorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "user not found")
		}
		return nil, apperr.Normalize(err)
	}
	if creator.ChurchID != nil {
		return nil, apperr.New(apperr.CodeConflict, "user already belongs to a church")
	}

	church := models.Church{
		Name:         name,
		Denomination: denomination,
		Location:     location,
		Description:  description,
		CreatedBy:    creatorID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&church).Error; err != nil {
			return err
		}

		pastor := models.ChurchRole{
			ChurchID:     church.ID,
			Name:         models.RolePastor,
			Description:  "Full administrative access",
			IsSystemRole: true,
		}
		if err := tx.Create(&pastor).Error; err != nil {
			return err
		}
		if err := createRolePermissions(tx, pastor.ID, models.AllPermissionKeys()); err != nil {
			return err
		}

		member := models.ChurchRole{
			ChurchID:     church.ID,
			Name:         models.RoleMember,
			Description:  "Regular member",
			IsSystemRole: true,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		if err := createRolePermissions(tx, member.ID, []string{"members:view"}); err != nil {
			return err
		}

		assignment := models.UserChurchRole{
			UserID:   creatorID,
			ChurchID: church.ID,
			RoleID:   pastor.ID,
		}
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}

		return tx.Model(&models.User{}).Where("id = ?", creatorID).
			Update("church_id", church.ID).Error
	})
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	s.cache.InvalidateUser(creatorID, church.ID)
	logger.Info().Uint("church_id", church.ID).Uint("created_by", creatorID).Msg("church registered")
	return &church, nil
}

// GetChurch returns one church by id.
func (s *ChurchService) GetChurch(ctx context.Context, churchID uint) (*models.Church, error) {
	return s.churches.Get(ctx, churchID)
}

// SearchChurches lists churches matching an optional case-insensitive name
// or denomination filter, paginated.
func (s *ChurchService) SearchChurches(ctx context.Context, name, denomination string, page, limit int) (*store.Page[models.Church], error) {
	var filters []store.Filter
	if name != "" {
		filters = append(filters, store.Filter{Field: "name", Op: store.OpILike, Value: "%" + name + "%"})
	}
	if denomination != "" {
		filters = append(filters, store.Filter{Field: "denomination", Op: store.OpILike, Value: "%" + denomination + "%"})
	}

	return s.churches.ListPaginated(ctx, store.ListOptions{
		Filters:    filters,
		Sorts:      []store.Sort{{Field: "name", Ascending: true}},
		Pagination: &store.Pagination{Page: page, Limit: limit},
	})
}

// UpdateChurch edits the church profile.
func (s *ChurchService) UpdateChurch(ctx context.Context, churchID uint, updates map[string]interface{}) (*models.Church, error) {
	return s.churches.Update(ctx, churchID, updates)
}

// ListChurchMembers returns the users whose membership was accepted into
// the church.
func (s *ChurchService) ListChurchMembers(ctx context.Context, churchID uint) ([]models.UserSummary, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("church_id = ?", churchID).
		Order("full_name ASC").
		Find(&users).Error
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	summaries := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, u.Summary())
	}
	return summaries, nil
}

// RemoveMember detaches a user from the church and drops their role
// assignments. The user account itself is untouched.
func (s *ChurchService) RemoveMember(ctx context.Context, churchID, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("id = ? AND church_id = ?", userID, churchID).
			Update("church_id", nil)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.CodeNotFound, "member not found in this church")
		}

		return tx.Where("user_id = ? AND church_id = ?", userID, churchID).
			Delete(&models.UserChurchRole{}).Error
	})
	if err != nil {
		return apperr.Normalize(err)
	}

	s.cache.InvalidateUser(userID, churchID)
	logger.Info().Uint("church_id", churchID).Uint("user_id", userID).Msg("member removed")
	return nil
}
