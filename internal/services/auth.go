package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/congregate/backend/internal/config"
	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/internal/utils"
	"github.com/congregate/backend/pkg/apperr"
	"github.com/congregate/backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	minPasswordLength = 8
	refreshTokenTTL   = 30 * 24 * time.Hour
)

// AuthService handles sign-up, sign-in and refresh token rotation.
type AuthService struct {
	db  *gorm.DB
	cfg *config.JWTConfig
}

func NewAuthService(db *gorm.DB, cfg *config.JWTConfig) *AuthService {
	return &AuthService{db: db, cfg: cfg}
}

// TokenPair is what a successful sign-in or refresh returns.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SignUp registers a new account. The email must be unused and the password
// at least 8 characters.
func (s *AuthService) SignUp(ctx context.Context, email, password, fullName string) (*models.User, error) {
	if len(password) < minPasswordLength {
		return nil, apperr.New(apperr.CodeWeakPassword, "password must be at least 8 characters")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperr.Normalize(err)
	}
	if count > 0 {
		return nil, apperr.New(apperr.CodeUserExists, "an account with this email already exists")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnknown, "failed to hash password", err)
	}

	user := models.User{
		Email:    email,
		Password: hash,
		FullName: fullName,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// Unique index on email catches the races the pre-check misses.
		if apperr.IsConflict(err) {
			return nil, apperr.New(apperr.CodeUserExists, "an account with this email already exists")
		}
		return nil, apperr.Normalize(err)
	}

	logger.Info().Uint("user_id", user.ID).Msg("user registered")
	return &user, nil
}

// SignIn verifies credentials and issues a token pair. Invalid email and
// invalid password are deliberately indistinguishable to the caller.
func (s *AuthService) SignIn(ctx context.Context, email, password, clientIP, userAgent string) (*models.User, *TokenPair, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.New(apperr.CodeInvalidCredentials, "invalid email or password")
		}
		return nil, nil, apperr.Normalize(err)
	}

	if !user.IsActive {
		return nil, nil, apperr.New(apperr.CodeInvalidCredentials, "invalid email or password")
	}
	if !utils.CheckPassword(password, user.Password) {
		return nil, nil, apperr.New(apperr.CodeInvalidCredentials, "invalid email or password")
	}

	pair, err := s.issueTokens(ctx, &user, clientIP, userAgent)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	s.db.WithContext(ctx).Model(&user).Update("last_login", now)
	user.LastLogin = &now

	return &user, pair, nil
}

// Refresh rotates a refresh token: the presented token is revoked, a new
// pair is issued, and the old row points at its replacement. A revoked or
// expired token yields AUTH_SESSION_MISSING so clients re-authenticate.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, clientIP, userAgent string) (*TokenPair, error) {
	hash := hashToken(refreshToken)

	var stored models.RefreshToken
	err := s.db.WithContext(ctx).Where("token_hash = ?", hash).First(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeSessionMissing, "refresh token not recognized")
		}
		return nil, apperr.Normalize(err)
	}

	if stored.RevokedAt != nil || time.Now().After(stored.ExpiresAt) {
		return nil, apperr.New(apperr.CodeSessionMissing, "refresh token expired or revoked")
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, stored.UserID).Error; err != nil {
		return nil, apperr.Normalize(err)
	}

	var pair *TokenPair
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		newToken, newHash, err := newRefreshToken()
		if err != nil {
			return err
		}

		replacement := models.RefreshToken{
			UserID:      user.ID,
			TokenHash:   newHash,
			ExpiresAt:   time.Now().Add(refreshTokenTTL),
			CreatedByIP: clientIP,
			UserAgent:   userAgent,
		}
		if err := tx.Create(&replacement).Error; err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&stored).Updates(map[string]interface{}{
			"revoked_at":           now,
			"replaced_by_token_id": replacement.ID,
		}).Error; err != nil {
			return err
		}

		access, err := utils.GenerateToken(user.ID, user.Email, s.cfg.ExpireHour)
		if err != nil {
			return err
		}
		pair = &TokenPair{AccessToken: access, RefreshToken: newToken}
		return nil
	})
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	return pair, nil
}

// RevokeRefreshToken revokes the presented token (sign-out). Unknown
// tokens are ignored so sign-out is idempotent.
func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hashToken(refreshToken)).
		Update("revoked_at", now).Error
	if err != nil {
		return apperr.Normalize(err)
	}
	return nil
}

// GetUserByID fetches one user, preloading the church for the profile view.
func (s *AuthService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Church").First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "user not found")
		}
		return nil, apperr.Normalize(err)
	}
	return &user, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User, clientIP, userAgent string) (*TokenPair, error) {
	access, err := utils.GenerateToken(user.ID, user.Email, s.cfg.ExpireHour)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnknown, "failed to sign access token", err)
	}

	refresh, hash, err := newRefreshToken()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnknown, "failed to generate refresh token", err)
	}

	row := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   hash,
		ExpiresAt:   time.Now().Add(refreshTokenTTL),
		CreatedByIP: clientIP,
		UserAgent:   userAgent,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, apperr.Normalize(err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Only the sha256 of a refresh token is stored; the raw value exists once,
// in the response to the client.
func newRefreshToken() (token, hash string, err error) {
	raw := make([]byte, 32)
	if _, err = rand.Read(raw); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(raw)
	return token, hashToken(token), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
