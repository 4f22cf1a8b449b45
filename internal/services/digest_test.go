package services

import (
	"context"
	"testing"
	"time"

	"github.com/congregate/backend/internal/models"
)

// newDigestFixture seeds a church with one reviewer and one pending request.
func newDigestFixture(t *testing.T) (*DigestService, *testFixture) {
	t.Helper()
	db := newTestDB(t)
	fx := &testFixture{db: db}
	fx.applicant = seedUser(t, db, "applicant@example.com")
	fx.reviewer = seedUser(t, db, "reviewer@example.com")
	fx.church = seedChurch(t, db, "First Baptist", fx.reviewer.ID)
	seedReviewer(t, db, fx.reviewer.ID, fx.church.ID)

	request := models.MembershipRequest{
		RequestID: "digest-test-request",
		ChurchID:  fx.church.ID,
		UserID:    fx.applicant.ID,
		Status:    models.RequestStatusPending,
	}
	if err := db.Create(&request).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}

	queue := NewSyncQueue()
	notifier := NewNotificationService(db, queue)
	queue.SetProcessor(notifier.Deliver)

	return NewDigestService(db, queue, NewHolidayService(), "US"), fx
}

// A Wednesday that is not a US holiday.
var businessDay = time.Date(2026, time.March, 4, 9, 0, 0, 0, time.UTC)

func TestDigest_NotifiesReviewersOnBusinessDay(t *testing.T) {
	svc, fx := newDigestFixture(t)

	if err := svc.RunOnce(context.Background(), businessDay); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	var count int64
	fx.db.Model(&models.Notification{}).
		Where("user_id = ?", fx.reviewer.ID).
		Count(&count)
	if count != 1 {
		t.Errorf("reviewer notifications = %d, want 1", count)
	}
}

func TestDigest_SkipsWeekend(t *testing.T) {
	svc, fx := newDigestFixture(t)
	saturday := time.Date(2026, time.March, 7, 9, 0, 0, 0, time.UTC)

	if err := svc.RunOnce(context.Background(), saturday); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	var count int64
	fx.db.Model(&models.Notification{}).Count(&count)
	if count != 0 {
		t.Errorf("notifications on a Saturday = %d, want 0", count)
	}
}

func TestDigest_SkipsHoliday(t *testing.T) {
	svc, fx := newDigestFixture(t)
	independenceDay := time.Date(2026, time.July, 3, 9, 0, 0, 0, time.UTC) // observed Friday

	if err := svc.RunOnce(context.Background(), independenceDay); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	var count int64
	fx.db.Model(&models.Notification{}).Count(&count)
	if count != 0 {
		t.Errorf("notifications on a holiday = %d, want 0", count)
	}
}

func TestDigest_QuietWhenNothingPending(t *testing.T) {
	svc, fx := newDigestFixture(t)

	// Resolve the only pending request first.
	fx.db.Model(&models.MembershipRequest{}).
		Where("request_id = ?", "digest-test-request").
		Update("status", models.RequestStatusCancelled)

	if err := svc.RunOnce(context.Background(), businessDay); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	var count int64
	fx.db.Model(&models.Notification{}).Count(&count)
	if count != 0 {
		t.Errorf("notifications with nothing pending = %d, want 0", count)
	}
}
