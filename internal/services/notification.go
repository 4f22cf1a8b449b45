package services

import (
	"context"
	"fmt"
	"time"

	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/internal/store"
	"github.com/congregate/backend/pkg/apperr"
	"github.com/congregate/backend/pkg/logger"
	"gorm.io/gorm"
)

// NotificationService writes in-app notifications for membership lifecycle
// events. Rows are persisted by the delivery processor, so with Redis
// enabled the lifecycle transaction never waits on notification writes.
type NotificationService struct {
	db            *gorm.DB
	queue         TaskQueue
	notifications *store.Gateway[models.Notification]
}

func NewNotificationService(db *gorm.DB, queue TaskQueue) *NotificationService {
	return &NotificationService{
		db:    db,
		queue: queue,
		notifications: store.NewGateway[models.Notification](db, "notifications",
			"id", "user_id", "type", "is_read", "created_at"),
	}
}

// Deliver persists one notification row. Registered as the task processor
// on both the sync queue and the async worker.
func (s *NotificationService) Deliver(ctx context.Context, task *NotificationTask) error {
	notification := models.Notification{
		UserID:  task.UserID,
		Type:    task.Type,
		Title:   task.Title,
		Message: task.Message,
		RefType: task.RefType,
		RefID:   task.RefID,
	}
	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return apperr.Normalize(err)
	}
	return nil
}

// NotifyRequestReceived notifies every reviewer of the church that a new
// membership request arrived. Failures are logged, never surfaced: the
// request itself already committed.
func (s *NotificationService) NotifyRequestReceived(ctx context.Context, request *models.MembershipRequest) {
	reviewerIDs, err := s.reviewerIDs(ctx, request.ChurchID)
	if err != nil {
		logger.Warnf("[Notification] reviewer lookup failed for church %d: %v", request.ChurchID, err)
		return
	}

	for _, reviewerID := range reviewerIDs {
		task := &NotificationTask{
			UserID:  reviewerID,
			Type:    models.NotificationRequestReceived,
			Title:   "New membership request",
			Message: "A new membership request is waiting for review.",
			RefType: "membership_request",
			RefID:   request.RequestID,
		}
		if err := s.queue.Enqueue(task); err != nil {
			logger.Warnf("[Notification] enqueue failed for reviewer %d: %v", reviewerID, err)
		}
	}
}

// NotifyRequestReviewed notifies the applicant about an accept or decline.
func (s *NotificationService) NotifyRequestReviewed(ctx context.Context, request *models.MembershipRequest) {
	var notifType, title, message string
	switch request.Status {
	case models.RequestStatusAccepted:
		notifType = models.NotificationRequestAccepted
		title = "Membership request accepted"
		message = "Welcome! Your membership request was accepted."
	case models.RequestStatusDeclined:
		notifType = models.NotificationRequestDeclined
		title = "Membership request declined"
		message = "Your membership request was declined."
	default:
		return
	}

	task := &NotificationTask{
		UserID:  request.UserID,
		Type:    notifType,
		Title:   title,
		Message: message,
		RefType: "membership_request",
		RefID:   request.RequestID,
	}
	if err := s.queue.Enqueue(task); err != nil {
		logger.Warnf("[Notification] enqueue failed for applicant %d: %v", request.UserID, err)
	}
}

// reviewerIDs returns the users holding requests:review in the church.
func (s *NotificationService) reviewerIDs(ctx context.Context, churchID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).
		Table("user_church_roles").
		Distinct("user_church_roles.user_id").
		Joins("JOIN church_role_permissions ON church_role_permissions.role_id = user_church_roles.role_id").
		Where("user_church_roles.church_id = ? AND church_role_permissions.permission_key = ?",
			churchID, "requests:review").
		Pluck("user_church_roles.user_id", &ids).Error
	return ids, err
}

// ListUserNotifications returns one page of a user's notifications,
// newest first.
func (s *NotificationService) ListUserNotifications(ctx context.Context, userID uint, page, limit int) (*store.Page[models.Notification], error) {
	return s.notifications.ListPaginated(ctx, store.ListOptions{
		Filters:    []store.Filter{{Field: "user_id", Op: store.OpEq, Value: userID}},
		Sorts:      []store.Sort{{Field: "created_at", Ascending: false}},
		Pagination: &store.Pagination{Page: page, Limit: limit},
	})
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if result.Error != nil {
		return apperr.Normalize(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.CodeNotFound, fmt.Sprintf("notification %d not found", notificationID))
	}
	return nil
}
