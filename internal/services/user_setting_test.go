package services

import (
	"context"
	"errors"
	"testing"

	"github.com/congregate/backend/pkg/apperr"
)

func TestSetSetting_UpsertsValue(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserSettingService(db)
	user := seedUser(t, db, "a@example.com")
	ctx := context.Background()

	first, err := svc.SetSetting(ctx, user.ID, "theme", "dark", "string")
	if err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if first.Value != "dark" {
		t.Errorf("value = %q, want dark", first.Value)
	}

	second, err := svc.SetSetting(ctx, user.ID, "theme", "light", "string")
	if err != nil {
		t.Fatalf("SetSetting (update): %v", err)
	}
	if second.Value != "light" {
		t.Errorf("value = %q, want light", second.Value)
	}

	settings, err := svc.ListSettings(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListSettings: %v", err)
	}
	if len(settings) != 1 {
		t.Errorf("settings = %d, want 1 (upsert, not insert)", len(settings))
	}
}

func TestSetSetting_MissingUserRequiresLogout(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserSettingService(db)
	// Shrink the retry window so the test doesn't wait on real backoff.
	original := DefaultWritePolicy
	DefaultWritePolicy = RetryPolicy{Attempts: 2, Backoff: LinearBackoff(0)}
	defer func() { DefaultWritePolicy = original }()

	_, err := svc.SetSetting(context.Background(), 9999, "theme", "dark", "string")
	if !errors.Is(err, ErrRequiresLogout) {
		t.Errorf("err = %v, want ErrRequiresLogout", err)
	}
}

func TestGetSetting_NotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserSettingService(db)
	user := seedUser(t, db, "a@example.com")

	_, err := svc.GetSetting(context.Background(), user.ID, "missing")
	if !apperr.IsNotFound(err) {
		t.Errorf("err = %v, want DATABASE_NOT_FOUND", err)
	}
}

func TestDeleteSetting_AbsentIsNoError(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserSettingService(db)
	user := seedUser(t, db, "a@example.com")

	if err := svc.DeleteSetting(context.Background(), user.ID, "missing"); err != nil {
		t.Errorf("deleting an absent key should succeed, got %v", err)
	}
}

func TestSetSetting_EmptyKeyRejected(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserSettingService(db)
	user := seedUser(t, db, "a@example.com")

	_, err := svc.SetSetting(context.Background(), user.ID, "", "x", "")
	if !apperr.HasCode(err, apperr.CodeValidation) {
		t.Errorf("err = %v, want DATABASE_VALIDATION", err)
	}
}
