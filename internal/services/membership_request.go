package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/internal/store"
	"github.com/congregate/backend/pkg/apperr"
	"github.com/congregate/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MembershipRequestService owns the membership request lifecycle:
//
//	        apply                      accept
//	(none) -------> pending ---------------------------> accepted [terminal]
//	                  |  \ decline
//	                  |   -----------------------------> declined [terminal]
//	                  | cancel (owner only)
//	                  ----------------------------------> cancelled [terminal]
//
// Transitions out of pending are compare-and-set updates, so a request that
// already reached a terminal state rejects any further transition with
// DATABASE_CONFLICT regardless of who races whom.
type MembershipRequestService struct {
	db       *gorm.DB
	requests *store.Gateway[models.MembershipRequest]
	notifier *NotificationService
}

func NewMembershipRequestService(db *gorm.DB, notifier *NotificationService) *MembershipRequestService {
	return &MembershipRequestService{
		db: db,
		requests: store.NewGateway[models.MembershipRequest](db, "church_membership_requests",
			"id", "request_id", "church_id", "user_id", "status", "created_at"),
		notifier: notifier,
	}
}

type CreateRequestInput struct {
	ChurchID uint   `json:"church_id" binding:"required"`
	Message  string `json:"message" binding:"max=500"`
}

// CreateRequest files a pending membership request for the authenticated
// user. A second pending request for the same (user, church) pair fails with
// DATABASE_CONFLICT, which callers must treat as "already applied".
func (s *MembershipRequestService) CreateRequest(ctx context.Context, input *CreateRequestInput) (*models.MembershipRequest, error) {
	userID, ok := store.UserFrom(ctx)
	if !ok {
		return nil, apperr.New(apperr.CodeSessionMissing, "no authenticated session")
	}

	request := models.MembershipRequest{
		RequestID: uuid.NewString(),
		ChurchID:  input.ChurchID,
		UserID:    userID,
		Status:    models.RequestStatusPending,
		Message:   input.Message,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var church models.Church
		if err := tx.First(&church, input.ChurchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.CodeNotFound, "church not found")
			}
			return err
		}

		// One pending request per (user, church). Checked inside the
		// transaction so two concurrent applies can't both slip through.
		var pending int64
		if err := tx.Model(&models.MembershipRequest{}).
			Where("user_id = ? AND church_id = ? AND status = ?",
				userID, input.ChurchID, models.RequestStatusPending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return apperr.New(apperr.CodeConflict, "a pending request for this church already exists")
		}

		return tx.Create(&request).Error
	})
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	logger.Info().
		Uint("user_id", userID).
		Uint("church_id", input.ChurchID).
		Str("request_id", request.RequestID).
		Msg("membership request created")

	s.notifier.NotifyRequestReceived(ctx, &request)
	return &request, nil
}

// MyRequestItem is one entry in the applicant-side listing, denormalized
// with a church summary.
type MyRequestItem struct {
	ID         string               `json:"id"`
	Status     string               `json:"status"`
	Message    string               `json:"message"`
	Church     models.ChurchSummary `json:"church"`
	CreatedAt  time.Time            `json:"created_at"`
	ReviewedAt *time.Time           `json:"reviewed_at,omitempty"`
}

// ListMyRequests returns all requests filed by the user, newest first.
func (s *MembershipRequestService) ListMyRequests(ctx context.Context, userID uint) ([]MyRequestItem, error) {
	var requests []models.MembershipRequest
	err := s.db.WithContext(ctx).
		Preload("Church").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	items := make([]MyRequestItem, 0, len(requests))
	for _, r := range requests {
		item := MyRequestItem{
			ID:         r.RequestID,
			Status:     r.Status,
			Message:    r.Message,
			CreatedAt:  r.CreatedAt,
			ReviewedAt: r.ReviewedAt,
		}
		if r.Church != nil {
			item.Church = r.Church.Summary()
		}
		items = append(items, item)
	}
	return items, nil
}

// ChurchRequestItem is one entry in the reviewer-side listing, denormalized
// with an applicant summary.
type ChurchRequestItem struct {
	ID         string             `json:"id"`
	Status     string             `json:"status"`
	Message    string             `json:"message"`
	User       models.UserSummary `json:"user"`
	CreatedAt  time.Time          `json:"created_at"`
	ReviewedAt *time.Time         `json:"reviewed_at,omitempty"`
	ReviewedBy *uint              `json:"reviewed_by,omitempty"`
}

// ListChurchRequests returns all requests for a church with applicant
// summaries, newest first. Intended for reviewer-side listing.
func (s *MembershipRequestService) ListChurchRequests(ctx context.Context, churchID uint) ([]ChurchRequestItem, error) {
	var requests []models.MembershipRequest
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("church_id = ?", churchID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	items := make([]ChurchRequestItem, 0, len(requests))
	for _, r := range requests {
		item := ChurchRequestItem{
			ID:         r.RequestID,
			Status:     r.Status,
			Message:    r.Message,
			CreatedAt:  r.CreatedAt,
			ReviewedAt: r.ReviewedAt,
			ReviewedBy: r.ReviewedBy,
		}
		if r.User != nil {
			item.User = r.User.Summary()
		}
		items = append(items, item)
	}
	return items, nil
}

// GetRequest fetches one request by its public id.
func (s *MembershipRequestService) GetRequest(ctx context.Context, requestID string) (*models.MembershipRequest, error) {
	var request models.MembershipRequest
	err := s.db.WithContext(ctx).Where("request_id = ?", requestID).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "membership request not found")
		}
		return nil, apperr.Normalize(err)
	}
	return &request, nil
}

// AcceptRequest transitions a pending request to accepted, attaches the
// applicant to the church and grants them the Member system role, in one
// transaction. Splitting the writes would allow a request marked accepted
// with the user never attached (or vice versa), so the whole operation
// commits or rolls back together. churchID scopes the transition to the
// church where the reviewer holds review rights; a request belonging to
// another church is rejected with PERMISSION_DENIED.
func (s *MembershipRequestService) AcceptRequest(ctx context.Context, requestID string, churchID, reviewerID uint) (*models.MembershipRequest, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		request, err := s.transition(tx, requestID, models.RequestStatusAccepted, churchID, &reviewerID, nil)
		if err != nil {
			return err
		}

		result := tx.Model(&models.User{}).
			Where("id = ?", request.UserID).
			Update("church_id", request.ChurchID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.CodeNotFound, "applicant user not found")
		}

		return s.grantMemberRole(tx, request)
	})
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	// Re-fetch to confirm and return the post-transition state.
	request, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("request_id", requestID).Uint("reviewer_id", reviewerID).Msg("membership request accepted")
	s.notifier.NotifyRequestReviewed(ctx, request)
	return request, nil
}

// grantMemberRole assigns the church's seeded Member system role to the
// accepted applicant so gated routes work without a manual role grant.
// Idempotent for users rejoining a church they held the role in before.
func (s *MembershipRequestService) grantMemberRole(tx *gorm.DB, request *models.MembershipRequest) error {
	var memberRole models.ChurchRole
	err := tx.Where("church_id = ? AND name = ? AND is_system_role = ?",
		request.ChurchID, models.RoleMember, true).
		First(&memberRole).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warnf("[MembershipRequest] church %d has no Member system role, skipping grant", request.ChurchID)
			return nil
		}
		return err
	}

	assignment := models.UserChurchRole{
		UserID:     request.UserID,
		ChurchID:   request.ChurchID,
		RoleID:     memberRole.ID,
		AssignedBy: request.ReviewedBy,
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&assignment).Error
}

// DeclineRequest transitions a pending request to declined, stamping the
// reviewer. Plain update path; not a multi-table operation. Scoped to the
// reviewer's church like AcceptRequest.
func (s *MembershipRequestService) DeclineRequest(ctx context.Context, requestID string, churchID, reviewerID uint) (*models.MembershipRequest, error) {
	request, err := s.transition(s.db.WithContext(ctx), requestID, models.RequestStatusDeclined, churchID, &reviewerID, nil)
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	logger.Info().Str("request_id", requestID).Uint("reviewer_id", reviewerID).Msg("membership request declined")
	s.notifier.NotifyRequestReviewed(ctx, request)
	return request, nil
}

// CancelRequest transitions a pending request to cancelled. Only the
// requesting user may cancel, and only while the request is still pending.
func (s *MembershipRequestService) CancelRequest(ctx context.Context, requestID string, userID uint) (*models.MembershipRequest, error) {
	request, err := s.transition(s.db.WithContext(ctx), requestID, models.RequestStatusCancelled, 0, nil, &userID)
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	logger.Info().Str("request_id", requestID).Uint("user_id", userID).Msg("membership request cancelled")
	return request, nil
}

// transition performs a compare-and-set status update from pending to the
// target state. A non-zero churchID restricts reviewer transitions to the
// church the reviewer is authorized for; an owner id restricts cancels to
// the requesting user. Zero rows affected means the request is absent,
// terminal, scoped to another church or owned by someone else; the
// follow-up read distinguishes the cases so the caller gets a precise
// error code.
func (s *MembershipRequestService) transition(tx *gorm.DB, requestID, target string, churchID uint, reviewerID, ownerID *uint) (*models.MembershipRequest, error) {
	values := map[string]interface{}{
		"status": target,
	}
	if reviewerID != nil {
		now := time.Now()
		values["reviewed_at"] = now
		values["reviewed_by"] = *reviewerID
	}

	query := tx.Model(&models.MembershipRequest{}).
		Where("request_id = ? AND status = ?", requestID, models.RequestStatusPending)
	if churchID != 0 {
		query = query.Where("church_id = ?", churchID)
	}
	if ownerID != nil {
		query = query.Where("user_id = ?", *ownerID)
	}

	result := query.Updates(values)
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		var existing models.MembershipRequest
		err := tx.Where("request_id = ?", requestID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "membership request not found")
		}
		if err != nil {
			return nil, err
		}
		if churchID != 0 && existing.ChurchID != churchID {
			return nil, apperr.New(apperr.CodePermissionDenied, "request belongs to another church")
		}
		if ownerID != nil && existing.UserID != *ownerID {
			return nil, apperr.New(apperr.CodePermissionDenied, "only the requesting user may cancel")
		}
		return nil, apperr.New(apperr.CodeConflict,
			fmt.Sprintf("request is already %s", existing.Status))
	}

	var updated models.MembershipRequest
	if err := tx.Where("request_id = ?", requestID).First(&updated).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

// HasPendingRequest reports whether the user has a pending request for the
// church. Deliberately soft: any failure converges to false. Not a gate.
func (s *MembershipRequestService) HasPendingRequest(ctx context.Context, userID, churchID uint) bool {
	count, err := s.requests.Count(ctx, []store.Filter{
		{Field: "user_id", Op: store.OpEq, Value: userID},
		{Field: "church_id", Op: store.OpEq, Value: churchID},
		{Field: "status", Op: store.OpEq, Value: models.RequestStatusPending},
	})
	if err != nil {
		logger.Warnf("[MembershipRequest] pending check failed for user=%d church=%d: %v", userID, churchID, err)
		return false
	}
	return count > 0
}
