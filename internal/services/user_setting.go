package services

import (
	"context"
	"errors"

	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/pkg/apperr"
	"github.com/congregate/backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrRequiresLogout means a settings write kept failing because the user
// row was not visible, even after retrying. The session is unrecoverable
// and the client should sign the user out.
var ErrRequiresLogout = apperr.New(apperr.CodeSessionMissing, "account row unavailable, sign-in required")

// UserSettingService stores per-user preferences. Writes retry briefly:
// right after sign-up a settings write can race the user row becoming
// visible, and a short retry absorbs that window.
type UserSettingService struct {
	db *gorm.DB
}

func NewUserSettingService(db *gorm.DB) *UserSettingService {
	return &UserSettingService{db: db}
}

// GetSetting returns one setting, or NotFound.
func (s *UserSettingService) GetSetting(ctx context.Context, userID uint, key string) (*models.UserSetting, error) {
	var setting models.UserSetting
	err := s.db.WithContext(ctx).
		Where(map[string]interface{}{"user_id": userID, "key": key}).
		First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "setting not found")
		}
		return nil, apperr.Normalize(err)
	}
	return &setting, nil
}

// ListSettings returns all of the user's settings keyed by name.
func (s *UserSettingService) ListSettings(ctx context.Context, userID uint) (map[string]models.UserSetting, error) {
	var settings []models.UserSetting
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&settings).Error
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	byKey := make(map[string]models.UserSetting, len(settings))
	for _, setting := range settings {
		byKey[setting.Key] = setting
	}
	return byKey, nil
}

// SetSetting upserts one setting. A NotFound from the user-row foreign key
// is treated as transient and retried; if it persists past the policy the
// caller gets ErrRequiresLogout.
func (s *UserSettingService) SetSetting(ctx context.Context, userID uint, key, value, valueType string) (*models.UserSetting, error) {
	if key == "" {
		return nil, apperr.New(apperr.CodeValidation, "setting key is required")
	}
	if valueType == "" {
		valueType = "string"
	}

	setting := models.UserSetting{
		UserID: userID,
		Key:    key,
		Value:  value,
		Type:   valueType,
	}

	err := WithRetry(ctx, DefaultWritePolicy, missingUserRow, func() error {
		if err := s.userExists(ctx, userID); err != nil {
			return err
		}
		return s.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "type", "updated_at"}),
			}).
			Create(&setting).Error
	})
	if err != nil {
		if missingUserRow(err) {
			logger.Warnf("[UserSetting] user row %d still missing after retries", userID)
			return nil, ErrRequiresLogout
		}
		return nil, apperr.Normalize(err)
	}

	return s.GetSetting(ctx, userID, key)
}

// DeleteSetting removes one setting; absent keys are not an error.
func (s *UserSettingService) DeleteSetting(ctx context.Context, userID uint, key string) error {
	err := s.db.WithContext(ctx).
		Where(map[string]interface{}{"user_id": userID, "key": key}).
		Delete(&models.UserSetting{}).Error
	if err != nil {
		return apperr.Normalize(err)
	}
	return nil
}

func (s *UserSettingService) userExists(ctx context.Context, userID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.New(apperr.CodeNotFound, "user row not visible yet")
	}
	return nil
}

func missingUserRow(err error) bool {
	return apperr.IsNotFound(err)
}
