package services

import (
	"context"
	"testing"

	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/internal/store"
	"github.com/congregate/backend/pkg/apperr"
	"gorm.io/gorm"
)

func newRequestService(t *testing.T) (*MembershipRequestService, *testFixture) {
	t.Helper()
	db := newTestDB(t)
	fx := &testFixture{db: db}
	fx.applicant = seedUser(t, db, "applicant@example.com")
	fx.reviewer = seedUser(t, db, "reviewer@example.com")
	fx.church = seedChurch(t, db, "First Baptist", fx.reviewer.ID)
	seedReviewer(t, db, fx.reviewer.ID, fx.church.ID)
	seedMemberRole(t, db, fx.church.ID)
	return NewMembershipRequestService(db, newSyncNotifier(db)), fx
}

type testFixture struct {
	db        *gorm.DB
	applicant *models.User
	reviewer  *models.User
	church    *models.Church
}

func TestCreateRequest_Pending(t *testing.T) {
	svc, fx := newRequestService(t)
	ctx := store.WithUser(context.Background(), fx.applicant.ID)

	request, err := svc.CreateRequest(ctx, &CreateRequestInput{ChurchID: fx.church.ID, Message: "hello"})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if request.Status != models.RequestStatusPending {
		t.Errorf("status = %q, want pending", request.Status)
	}
	if request.RequestID == "" {
		t.Error("expected a public request id")
	}
}

func TestCreateRequest_NoSession(t *testing.T) {
	svc, fx := newRequestService(t)

	_, err := svc.CreateRequest(context.Background(), &CreateRequestInput{ChurchID: fx.church.ID})
	if !apperr.HasCode(err, apperr.CodeSessionMissing) {
		t.Errorf("err = %v, want AUTH_SESSION_MISSING", err)
	}
}

func TestCreateRequest_UnknownChurch(t *testing.T) {
	svc, fx := newRequestService(t)
	ctx := store.WithUser(context.Background(), fx.applicant.ID)

	_, err := svc.CreateRequest(ctx, &CreateRequestInput{ChurchID: 9999})
	if !apperr.IsNotFound(err) {
		t.Errorf("err = %v, want DATABASE_NOT_FOUND", err)
	}
}

func TestCreateRequest_DuplicatePendingConflicts(t *testing.T) {
	svc, fx := newRequestService(t)
	ctx := store.WithUser(context.Background(), fx.applicant.ID)

	if _, err := svc.CreateRequest(ctx, &CreateRequestInput{ChurchID: fx.church.ID}); err != nil {
		t.Fatalf("first CreateRequest: %v", err)
	}
	_, err := svc.CreateRequest(ctx, &CreateRequestInput{ChurchID: fx.church.ID})
	if !apperr.IsConflict(err) {
		t.Errorf("err = %v, want DATABASE_CONFLICT", err)
	}
}

func TestAcceptRequest_AttachesUser(t *testing.T) {
	svc, fx := newRequestService(t)
	ctx := store.WithUser(context.Background(), fx.applicant.ID)

	request, err := svc.CreateRequest(ctx, &CreateRequestInput{ChurchID: fx.church.ID})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	accepted, err := svc.AcceptRequest(context.Background(), request.RequestID, fx.church.ID, fx.reviewer.ID)
	if err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}
	if accepted.Status != models.RequestStatusAccepted {
		t.Errorf("status = %q, want accepted", accepted.Status)
	}
	if accepted.ReviewedAt == nil || accepted.ReviewedBy == nil || *accepted.ReviewedBy != fx.reviewer.ID {
		t.Error("expected reviewer stamp on accepted request")
	}

	var applicant models.User
	if err := svc.db.First(&applicant, fx.applicant.ID).Error; err != nil {
		t.Fatalf("reload applicant: %v", err)
	}
	if applicant.ChurchID == nil || *applicant.ChurchID != fx.church.ID {
		t.Errorf("applicant church = %v, want %d", applicant.ChurchID, fx.church.ID)
	}

	// Acceptance grants the Member system role, so gated member routes
	// resolve immediately.
	perms := NewPermissionService(svc.db, NewPermissionCache())
	set, err := perms.GetUserPermissions(context.Background(), fx.applicant.ID, fx.church.ID)
	if err != nil {
		t.Fatalf("GetUserPermissions: %v", err)
	}
	if !set.Has("members:view") {
		t.Errorf("accepted member permissions = %v, want members:view", set.Permissions)
	}

	// Applicant got an acceptance notification through the sync queue.
	var count int64
	svc.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", fx.applicant.ID, models.NotificationRequestAccepted).
		Count(&count)
	if count != 1 {
		t.Errorf("acceptance notifications = %d, want 1", count)
	}
}

func TestAcceptRequest_ForeignChurchReviewerRejected(t *testing.T) {
	svc, fx := newRequestService(t)
	ctx := store.WithUser(context.Background(), fx.applicant.ID)

	request, err := svc.CreateRequest(ctx, &CreateRequestInput{ChurchID: fx.church.ID})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	otherAdmin := seedUser(t, fx.db, "other-reviewer@example.com")
	other := seedChurch(t, fx.db, "Second Baptist", otherAdmin.ID)
	seedReviewer(t, fx.db, otherAdmin.ID, other.ID)

	// A reviewer scoped to another church cannot decide this request.
	if _, err := svc.AcceptRequest(context.Background(), request.RequestID, other.ID, otherAdmin.ID); !apperr.IsForbidden(err) {
		t.Errorf("accept from foreign church: err = %v, want PERMISSION_DENIED", err)
	}
	if _, err := svc.DeclineRequest(context.Background(), request.RequestID, other.ID, otherAdmin.ID); !apperr.IsForbidden(err) {
		t.Errorf("decline from foreign church: err = %v, want PERMISSION_DENIED", err)
	}

	reloaded, err := svc.GetRequest(context.Background(), request.RequestID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if reloaded.Status != models.RequestStatusPending {
		t.Errorf("status = %q, want pending after rejected cross-church review", reloaded.Status)
	}

	var applicant models.User
	svc.db.First(&applicant, fx.applicant.ID)
	if applicant.ChurchID != nil {
		t.Error("applicant must not be attached by a foreign reviewer")
	}
}

func TestAcceptRequest_MissingMemberRoleStillAccepts(t *testing.T) {
	svc, fx := newRequestService(t)
	ctx := store.WithUser(context.Background(), fx.applicant.ID)

	// Churches created before role seeding may lack the Member system role;
	// acceptance still goes through without a grant.
	if err := fx.db.Where("church_id = ? AND is_system_role = ?", fx.church.ID, true).
		Delete(&models.ChurchRole{}).Error; err != nil {
		t.Fatalf("remove member role: %v", err)
	}

	request, err := svc.CreateRequest(ctx, &CreateRequestInput{ChurchID: fx.church.ID})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	accepted, err := svc.AcceptRequest(context.Background(), request.RequestID, fx.church.ID, fx.reviewer.ID)
	if err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}
	if accepted.Status != models.RequestStatusAccepted {
		t.Errorf("status = %q, want accepted", accepted.Status)
	}

	var count int64
	svc.db.Model(&models.UserChurchRole{}).Where("user_id = ?", fx.applicant.ID).Count(&count)
	if count != 0 {
		t.Errorf("role assignments = %d, want 0 when no member role exists", count)
	}
}

func TestAcceptRequest_TerminalRejected(t *testing.T) {
	svc, fx := newRequestService(t)
	ctx := store.WithUser(context.Background(), fx.applicant.ID)

	request, err := svc.CreateRequest(ctx, &CreateRequestInput{ChurchID: fx.church.ID})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if _, err := svc.DeclineRequest(context.Background(), request.RequestID, fx.church.ID, fx.reviewer.ID); err != nil {
		t.Fatalf("DeclineRequest: %v", err)
	}

	_, err = svc.AcceptRequest(context.Background(), request.RequestID, fx.church.ID, fx.reviewer.ID)
	if !apperr.IsConflict(err) {
		t.Errorf("accept after decline: err = %v, want DATABASE_CONFLICT", err)
	}

	// Declined stays declined; the applicant was never attached.
	var applicant models.User
	svc.db.First(&applicant, fx.applicant.ID)
	if applicant.ChurchID != nil {
		t.Error("declined request must not attach applicant to church")
	}
}

func TestCancelRequest_OwnerOnly(t *testing.T) {
	svc, fx := newRequestService(t)
	ctx := store.WithUser(context.Background(), fx.applicant.ID)

	request, err := svc.CreateRequest(ctx, &CreateRequestInput{ChurchID: fx.church.ID})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	if _, err := svc.CancelRequest(context.Background(), request.RequestID, fx.reviewer.ID); !apperr.IsForbidden(err) {
		t.Errorf("cancel by non-owner: err = %v, want PERMISSION_DENIED", err)
	}

	cancelled, err := svc.CancelRequest(context.Background(), request.RequestID, fx.applicant.ID)
	if err != nil {
		t.Fatalf("CancelRequest by owner: %v", err)
	}
	if cancelled.Status != models.RequestStatusCancelled {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}
}

func TestGetRequest_NotFound(t *testing.T) {
	svc, _ := newRequestService(t)

	_, err := svc.GetRequest(context.Background(), "no-such-id")
	if !apperr.IsNotFound(err) {
		t.Errorf("err = %v, want DATABASE_NOT_FOUND", err)
	}
}

func TestNotifyRequestReceived_ReachesReviewer(t *testing.T) {
	svc, fx := newRequestService(t)
	ctx := store.WithUser(context.Background(), fx.applicant.ID)

	if _, err := svc.CreateRequest(ctx, &CreateRequestInput{ChurchID: fx.church.ID}); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	var count int64
	svc.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", fx.reviewer.ID, models.NotificationRequestReceived).
		Count(&count)
	if count != 1 {
		t.Errorf("reviewer notifications = %d, want 1", count)
	}
}

func TestHasPendingRequest(t *testing.T) {
	svc, fx := newRequestService(t)
	ctx := store.WithUser(context.Background(), fx.applicant.ID)

	if svc.HasPendingRequest(ctx, fx.applicant.ID, fx.church.ID) {
		t.Error("expected no pending request before apply")
	}
	if _, err := svc.CreateRequest(ctx, &CreateRequestInput{ChurchID: fx.church.ID}); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if !svc.HasPendingRequest(ctx, fx.applicant.ID, fx.church.ID) {
		t.Error("expected pending request after apply")
	}
}
