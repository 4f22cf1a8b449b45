package services

import (
	"context"
	"testing"

	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/pkg/apperr"
)

func TestListUserNotifications_NewestFirstAndPaginated(t *testing.T) {
	db := newTestDB(t)
	svc := newSyncNotifier(db)
	user := seedUser(t, db, "a@example.com")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := svc.Deliver(ctx, &NotificationTask{
			UserID: user.ID,
			Type:   models.NotificationRequestReceived,
			Title:  "n",
		})
		if err != nil {
			t.Fatalf("Deliver: %v", err)
		}
	}

	page, err := svc.ListUserNotifications(ctx, user.ID, 1, 2)
	if err != nil {
		t.Fatalf("ListUserNotifications: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 {
		t.Errorf("total = %d items = %d, want 3 total with 2 on the page", page.Total, len(page.Items))
	}
}

func TestMarkRead_ScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	svc := newSyncNotifier(db)
	owner := seedUser(t, db, "a@example.com")
	other := seedUser(t, db, "b@example.com")
	ctx := context.Background()

	if err := svc.Deliver(ctx, &NotificationTask{UserID: owner.ID, Type: "x", Title: "n"}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	var notification models.Notification
	db.First(&notification)

	if err := svc.MarkRead(ctx, other.ID, notification.ID); !apperr.IsNotFound(err) {
		t.Errorf("foreign MarkRead: err = %v, want DATABASE_NOT_FOUND", err)
	}
	if err := svc.MarkRead(ctx, owner.ID, notification.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	db.First(&notification, notification.ID)
	if !notification.IsRead || notification.ReadAt == nil {
		t.Error("notification should be marked read with a timestamp")
	}
}
