package services

import (
	"context"
	"testing"

	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/pkg/apperr"
)

func newPermissionService(t *testing.T) (*PermissionService, *testFixture) {
	t.Helper()
	db := newTestDB(t)
	seedCatalog(t, db)

	fx := &testFixture{db: db}
	fx.applicant = seedUser(t, db, "member@example.com")
	fx.reviewer = seedUser(t, db, "pastor@example.com")
	fx.church = seedChurch(t, db, "Grace Fellowship", fx.reviewer.ID)

	// Role assignment requires the target to belong to the church.
	if err := db.Model(&models.User{}).Where("id = ?", fx.applicant.ID).
		Update("church_id", fx.church.ID).Error; err != nil {
		t.Fatalf("attach applicant to church: %v", err)
	}

	return NewPermissionService(db, NewPermissionCache()), fx
}

func TestGetUserPermissions_ZeroIDsEmptySet(t *testing.T) {
	svc, _ := newPermissionService(t)

	set, err := svc.GetUserPermissions(context.Background(), 0, 5)
	if err != nil {
		t.Fatalf("GetUserPermissions: %v", err)
	}
	if len(set.Permissions) != 0 || len(set.Roles) != 0 {
		t.Errorf("expected empty set for zero user id, got %+v", set)
	}

	set, err = svc.GetUserPermissions(context.Background(), 5, 0)
	if err != nil {
		t.Fatalf("GetUserPermissions: %v", err)
	}
	if len(set.Permissions) != 0 {
		t.Errorf("expected empty set for zero church id, got %+v", set)
	}
}

func TestGetUserPermissions_UnionAcrossRoles(t *testing.T) {
	svc, fx := newPermissionService(t)
	ctx := context.Background()

	roleA, err := svc.CreateRole(ctx, fx.church.ID, "Greeter", "", []string{"members:view"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	roleB, err := svc.CreateRole(ctx, fx.church.ID, "Deacon", "", []string{"members:view", "requests:review"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := svc.AssignRoleToUser(ctx, fx.church.ID, fx.applicant.ID, roleA.ID, nil); err != nil {
		t.Fatalf("AssignRoleToUser: %v", err)
	}
	if err := svc.AssignRoleToUser(ctx, fx.church.ID, fx.applicant.ID, roleB.ID, nil); err != nil {
		t.Fatalf("AssignRoleToUser: %v", err)
	}

	set, err := svc.GetUserPermissions(ctx, fx.applicant.ID, fx.church.ID)
	if err != nil {
		t.Fatalf("GetUserPermissions: %v", err)
	}
	// Duplicate keys collapse: two roles grant members:view once.
	if len(set.Permissions) != 2 {
		t.Errorf("permissions = %v, want 2 distinct keys", set.Permissions)
	}
	if !set.Has("requests:review") || !set.Has("members:view") {
		t.Errorf("missing expected keys in %v", set.Permissions)
	}
	if len(set.Roles) != 2 {
		t.Errorf("roles = %d, want 2", len(set.Roles))
	}
}

func TestCan_FalseBeforeAnyLoad(t *testing.T) {
	svc, fx := newPermissionService(t)

	if svc.Can(fx.applicant.ID, fx.church.ID, "members:view") {
		t.Error("Can must answer false before anything is cached")
	}
}

func TestCreateRole_ValidatesInput(t *testing.T) {
	svc, fx := newPermissionService(t)
	ctx := context.Background()

	if _, err := svc.CreateRole(ctx, fx.church.ID, " x ", "", nil); !apperr.HasCode(err, apperr.CodeValidation) {
		t.Errorf("short name: err = %v, want DATABASE_VALIDATION", err)
	}
	if _, err := svc.CreateRole(ctx, fx.church.ID, "Usher", "", []string{"bogus:key"}); !apperr.HasCode(err, apperr.CodeValidation) {
		t.Errorf("unknown key: err = %v, want DATABASE_VALIDATION", err)
	}
}

func TestUpdateRole_SystemRoleRejected(t *testing.T) {
	svc, fx := newPermissionService(t)
	ctx := context.Background()

	system := models.ChurchRole{ChurchID: fx.church.ID, Name: models.RolePastor, IsSystemRole: true}
	if err := fx.db.Create(&system).Error; err != nil {
		t.Fatalf("seed system role: %v", err)
	}

	if _, err := svc.UpdateRole(ctx, fx.church.ID, system.ID, "Renamed", "", nil); !apperr.IsForbidden(err) {
		t.Errorf("update system role: err = %v, want PERMISSION_DENIED", err)
	}
	if err := svc.DeleteRole(ctx, fx.church.ID, system.ID); !apperr.IsForbidden(err) {
		t.Errorf("delete system role: err = %v, want PERMISSION_DENIED", err)
	}

	// Role untouched after the rejected update.
	var reloaded models.ChurchRole
	fx.db.First(&reloaded, system.ID)
	if reloaded.Name != models.RolePastor {
		t.Errorf("system role renamed to %q", reloaded.Name)
	}
}

func TestUpdateRole_ReplacesKeysWholesale(t *testing.T) {
	svc, fx := newPermissionService(t)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, fx.church.ID, "Usher", "", []string{"members:view", "requests:view"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	updated, err := svc.UpdateRole(ctx, fx.church.ID, role.ID, "Usher", "front door", []string{"teams:create"})
	if err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if len(updated.PermissionKeys) != 1 || updated.PermissionKeys[0] != "teams:create" {
		t.Errorf("keys = %v, want [teams:create]", updated.PermissionKeys)
	}

	var count int64
	fx.db.Model(&models.RolePermission{}).Where("role_id = ?", role.ID).Count(&count)
	if count != 1 {
		t.Errorf("stored associations = %d, want 1", count)
	}
}

func TestAssignRole_IdempotentOnDuplicate(t *testing.T) {
	svc, fx := newPermissionService(t)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, fx.church.ID, "Usher", "", []string{"members:view"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	if err := svc.AssignRoleToUser(ctx, fx.church.ID, fx.applicant.ID, role.ID, nil); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	if err := svc.AssignRoleToUser(ctx, fx.church.ID, fx.applicant.ID, role.ID, nil); err != nil {
		t.Errorf("duplicate assign should be treated as success, got %v", err)
	}

	var count int64
	fx.db.Model(&models.UserChurchRole{}).
		Where("user_id = ? AND role_id = ?", fx.applicant.ID, role.ID).
		Count(&count)
	if count != 1 {
		t.Errorf("assignments = %d, want 1", count)
	}
}

func TestRemoveRole_MissingAssignmentNotFound(t *testing.T) {
	svc, fx := newPermissionService(t)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, fx.church.ID, "Usher", "", nil)
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	if err := svc.RemoveRoleFromUser(ctx, fx.church.ID, fx.applicant.ID, role.ID); !apperr.IsNotFound(err) {
		t.Errorf("err = %v, want DATABASE_NOT_FOUND", err)
	}
}

func TestRoleMutation_InvalidatesCache(t *testing.T) {
	svc, fx := newPermissionService(t)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, fx.church.ID, "Usher", "", []string{"members:view"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if err := svc.AssignRoleToUser(ctx, fx.church.ID, fx.applicant.ID, role.ID, nil); err != nil {
		t.Fatalf("AssignRoleToUser: %v", err)
	}

	// Warm the cache, then mutate the role.
	if _, err := svc.GetUserPermissions(ctx, fx.applicant.ID, fx.church.ID); err != nil {
		t.Fatalf("GetUserPermissions: %v", err)
	}
	if !svc.Can(fx.applicant.ID, fx.church.ID, "members:view") {
		t.Fatal("expected cached members:view after warm-up")
	}

	if _, err := svc.UpdateRole(ctx, fx.church.ID, role.ID, "Usher", "", []string{"teams:create"}); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}

	// Invalidation beats freshness: the next read resolves the new set.
	if svc.Can(fx.applicant.ID, fx.church.ID, "members:view") {
		t.Error("stale cached permission survived church-wide invalidation")
	}
	set, err := svc.GetUserPermissions(ctx, fx.applicant.ID, fx.church.ID)
	if err != nil {
		t.Fatalf("GetUserPermissions after mutation: %v", err)
	}
	if !set.Has("teams:create") || set.Has("members:view") {
		t.Errorf("resolved set = %v, want only teams:create", set.Permissions)
	}
}

func TestRoleMutation_ForeignChurchRejected(t *testing.T) {
	svc, fx := newPermissionService(t)
	ctx := context.Background()

	otherAdmin := seedUser(t, fx.db, "other-pastor@example.com")
	other := seedChurch(t, fx.db, "Other Assembly", otherAdmin.ID)

	role, err := svc.CreateRole(ctx, other.ID, "Elder", "", []string{"members:view"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	// A caller scoped to fx.church holds no authority over other's roles.
	if _, err := svc.UpdateRole(ctx, fx.church.ID, role.ID, "Hijacked", "", []string{"roles:delete"}); !apperr.IsForbidden(err) {
		t.Errorf("update foreign role: err = %v, want PERMISSION_DENIED", err)
	}
	if err := svc.DeleteRole(ctx, fx.church.ID, role.ID); !apperr.IsForbidden(err) {
		t.Errorf("delete foreign role: err = %v, want PERMISSION_DENIED", err)
	}
	if err := svc.AssignRoleToUser(ctx, fx.church.ID, fx.applicant.ID, role.ID, nil); !apperr.IsForbidden(err) {
		t.Errorf("assign foreign role: err = %v, want PERMISSION_DENIED", err)
	}
	if err := svc.RemoveRoleFromUser(ctx, fx.church.ID, fx.applicant.ID, role.ID); !apperr.IsForbidden(err) {
		t.Errorf("revoke foreign role: err = %v, want PERMISSION_DENIED", err)
	}

	var reloaded models.ChurchRole
	if err := fx.db.First(&reloaded, role.ID).Error; err != nil {
		t.Fatalf("reload role: %v", err)
	}
	if reloaded.Name != "Elder" {
		t.Errorf("foreign role renamed to %q", reloaded.Name)
	}
}

func TestAssignRole_TargetOutsideChurchRejected(t *testing.T) {
	svc, fx := newPermissionService(t)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, fx.church.ID, "Usher", "", []string{"members:view"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	outsider := seedUser(t, fx.db, "visitor@example.com")
	if err := svc.AssignRoleToUser(ctx, fx.church.ID, outsider.ID, role.ID, nil); !apperr.HasCode(err, apperr.CodeValidation) {
		t.Errorf("assign to non-member: err = %v, want DATABASE_VALIDATION", err)
	}
	if err := svc.AssignRoleToUser(ctx, fx.church.ID, 99999, role.ID, nil); !apperr.IsNotFound(err) {
		t.Errorf("assign to missing user: err = %v, want DATABASE_NOT_FOUND", err)
	}

	var count int64
	fx.db.Model(&models.UserChurchRole{}).Where("role_id = ?", role.ID).Count(&count)
	if count != 0 {
		t.Errorf("assignments = %d, want 0", count)
	}
}

func TestGetChurchRoles_SystemFirstThenAlphabetical(t *testing.T) {
	svc, fx := newPermissionService(t)
	ctx := context.Background()

	system := models.ChurchRole{ChurchID: fx.church.ID, Name: "Pastor", IsSystemRole: true}
	if err := fx.db.Create(&system).Error; err != nil {
		t.Fatalf("seed system role: %v", err)
	}
	if _, err := svc.CreateRole(ctx, fx.church.ID, "Zebra Crew", "", nil); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if _, err := svc.CreateRole(ctx, fx.church.ID, "Alpha Crew", "", []string{"members:view"}); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	roles, err := svc.GetChurchRoles(ctx, fx.church.ID)
	if err != nil {
		t.Fatalf("GetChurchRoles: %v", err)
	}
	if len(roles) != 3 {
		t.Fatalf("roles = %d, want 3", len(roles))
	}
	if roles[0].Name != "Pastor" {
		t.Errorf("roles[0] = %q, want system role first", roles[0].Name)
	}
	if roles[1].Name != "Alpha Crew" || roles[2].Name != "Zebra Crew" {
		t.Errorf("custom roles out of order: %q, %q", roles[1].Name, roles[2].Name)
	}
	if len(roles[1].PermissionKeys) != 1 {
		t.Errorf("Alpha Crew keys = %v, want populated", roles[1].PermissionKeys)
	}
}
