package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/congregate/backend/internal/models"
	"github.com/congregate/backend/pkg/apperr"
	"github.com/congregate/backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// The global permission catalog changes only on deploy, so it is cached
// far longer than per-user permission sets.
const catalogCacheFor = time.Hour

// PermissionService resolves effective user permissions and owns the role
// catalog for each church. Every successful role or assignment mutation
// invalidates the permission cache church-wide.
type PermissionService struct {
	db    *gorm.DB
	cache *PermissionCache

	catalogMu sync.RWMutex
	catalog   []models.Permission
	catalogAt time.Time
}

func NewPermissionService(db *gorm.DB, cache *PermissionCache) *PermissionService {
	return &PermissionService{db: db, cache: cache}
}

// --- Resolution ---

// GetUserPermissions returns the user's effective permission set for the
// church, read through the cache. A zero userID or churchID yields an empty
// set without touching the database.
func (s *PermissionService) GetUserPermissions(ctx context.Context, userID, churchID uint) (*PermissionSet, error) {
	if userID == 0 || churchID == 0 {
		return &PermissionSet{Permissions: []string{}, Roles: []models.ChurchRole{}}, nil
	}

	if set, ok := s.cache.GetFresh(userID, churchID); ok {
		return &set, nil
	}

	set, err := s.resolve(ctx, userID, churchID)
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	s.cache.Put(userID, churchID, *set)
	return set, nil
}

// resolve computes the permission set from role assignments. One query for
// the roles, one for the union of their permission keys.
func (s *PermissionService) resolve(ctx context.Context, userID, churchID uint) (*PermissionSet, error) {
	var roles []models.ChurchRole
	err := s.db.WithContext(ctx).
		Joins("JOIN user_church_roles ON user_church_roles.role_id = church_roles.id").
		Where("user_church_roles.user_id = ? AND user_church_roles.church_id = ?", userID, churchID).
		Find(&roles).Error
	if err != nil {
		return nil, err
	}

	set := &PermissionSet{Permissions: []string{}, Roles: roles}
	if len(roles) == 0 {
		return set, nil
	}

	roleIDs := make([]uint, 0, len(roles))
	for _, r := range roles {
		roleIDs = append(roleIDs, r.ID)
	}

	var keys []string
	err = s.db.WithContext(ctx).
		Model(&models.RolePermission{}).
		Distinct("permission_key").
		Where("role_id IN ?", roleIDs).
		Order("permission_key").
		Pluck("permission_key", &keys).Error
	if err != nil {
		return nil, err
	}

	set.Permissions = keys
	return set, nil
}

// Can reports whether the user holds the permission key in the church,
// answering from cache only. Returns false when nothing is cached yet;
// never an error.
func (s *PermissionService) Can(userID, churchID uint, key string) bool {
	set, ok := s.cache.Get(userID, churchID)
	if !ok {
		return false
	}
	return set.Has(key)
}

// HasRole reports whether the user holds a role with the given name in the
// church, answering from cache only.
func (s *PermissionService) HasRole(userID, churchID uint, name string) bool {
	set, ok := s.cache.Get(userID, churchID)
	if !ok {
		return false
	}
	return set.HasRole(name)
}

// CanAny reports whether the user holds at least one of the keys.
func (s *PermissionService) CanAny(userID, churchID uint, keys []string) bool {
	for _, key := range keys {
		if s.Can(userID, churchID, key) {
			return true
		}
	}
	return false
}

// CanAll reports whether the user holds every one of the keys.
func (s *PermissionService) CanAll(userID, churchID uint, keys []string) bool {
	for _, key := range keys {
		if !s.Can(userID, churchID, key) {
			return false
		}
	}
	return true
}

// Check is the read-through variant used by the permission middleware:
// it resolves on a cache miss rather than answering false.
func (s *PermissionService) Check(ctx context.Context, userID, churchID uint, key string) (bool, error) {
	set, err := s.GetUserPermissions(ctx, userID, churchID)
	if err != nil {
		return false, err
	}
	return set.Has(key), nil
}

// --- Catalog ---

// GetAllPermissions returns the global permission catalog sorted by
// category then key, cached for an hour.
func (s *PermissionService) GetAllPermissions(ctx context.Context) ([]models.Permission, error) {
	s.catalogMu.RLock()
	if s.catalog != nil && time.Since(s.catalogAt) < catalogCacheFor {
		catalog := s.catalog
		s.catalogMu.RUnlock()
		return catalog, nil
	}
	s.catalogMu.RUnlock()

	var permissions []models.Permission
	err := s.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "category"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).
		Find(&permissions).Error
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	s.catalogMu.Lock()
	s.catalog = permissions
	s.catalogAt = time.Now()
	s.catalogMu.Unlock()

	return permissions, nil
}

func (s *PermissionService) validKeys(ctx context.Context, keys []string) error {
	catalog, err := s.GetAllPermissions(ctx)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(catalog))
	for _, p := range catalog {
		known[p.Key] = true
	}
	for _, key := range keys {
		if !known[key] {
			return apperr.New(apperr.CodeValidation, "unknown permission key: "+key)
		}
	}
	return nil
}

// --- Role admin operations ---

// GetChurchRoles returns the church's roles, system roles first then
// alphabetical, each populated with its permission keys.
func (s *PermissionService) GetChurchRoles(ctx context.Context, churchID uint) ([]models.ChurchRole, error) {
	var roles []models.ChurchRole
	err := s.db.WithContext(ctx).
		Where("church_id = ?", churchID).
		Order("is_system_role DESC, name ASC").
		Find(&roles).Error
	if err != nil {
		return nil, apperr.Normalize(err)
	}
	if len(roles) == 0 {
		return roles, nil
	}

	roleIDs := make([]uint, 0, len(roles))
	for _, r := range roles {
		roleIDs = append(roleIDs, r.ID)
	}

	var associations []models.RolePermission
	err = s.db.WithContext(ctx).
		Where("role_id IN ?", roleIDs).
		Order("permission_key ASC").
		Find(&associations).Error
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	keysByRole := make(map[uint][]string)
	for _, a := range associations {
		keysByRole[a.RoleID] = append(keysByRole[a.RoleID], a.PermissionKey)
	}
	for i := range roles {
		roles[i].PermissionKeys = keysByRole[roles[i].ID]
	}
	return roles, nil
}

// CreateRole creates a role and its permission associations in one
// transaction: either both land or neither does.
func (s *PermissionService) CreateRole(ctx context.Context, churchID uint, name, description string, permissionKeys []string) (*models.ChurchRole, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return nil, apperr.New(apperr.CodeValidation, "role name must be at least 2 characters")
	}
	if err := s.validKeys(ctx, permissionKeys); err != nil {
		return nil, err
	}

	role := models.ChurchRole{
		ChurchID:    churchID,
		Name:        name,
		Description: description,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&role).Error; err != nil {
			return err
		}
		return createRolePermissions(tx, role.ID, permissionKeys)
	})
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	role.PermissionKeys = permissionKeys
	s.cache.InvalidateChurch(churchID)
	logger.Info().Uint("church_id", churchID).Str("role", name).Msg("role created")
	return &role, nil
}

// UpdateRole renames a role and replaces its permission set wholesale.
// System roles and roles of other churches are rejected before any write
// is attempted.
func (s *PermissionService) UpdateRole(ctx context.Context, churchID, roleID uint, name, description string, permissionKeys []string) (*models.ChurchRole, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return nil, apperr.New(apperr.CodeValidation, "role name must be at least 2 characters")
	}

	role, err := s.getChurchRole(ctx, churchID, roleID)
	if err != nil {
		return nil, err
	}
	if role.IsSystemRole {
		return nil, apperr.New(apperr.CodePermissionDenied, "system roles cannot be modified")
	}
	if err := s.validKeys(ctx, permissionKeys); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(role).Updates(map[string]interface{}{
			"name":        name,
			"description": description,
		}).Error; err != nil {
			return err
		}
		// Full replace, not incremental: callers pass the complete set.
		if err := tx.Where("role_id = ?", roleID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		return createRolePermissions(tx, roleID, permissionKeys)
	})
	if err != nil {
		return nil, apperr.Normalize(err)
	}

	role.Name = name
	role.Description = description
	role.PermissionKeys = permissionKeys
	s.cache.InvalidateChurch(role.ChurchID)
	logger.Info().Uint("role_id", roleID).Msg("role updated")
	return role, nil
}

// DeleteRole removes a role, its permission associations and its user
// assignments. System roles and roles of other churches are rejected
// before any write.
func (s *PermissionService) DeleteRole(ctx context.Context, churchID, roleID uint) error {
	role, err := s.getChurchRole(ctx, churchID, roleID)
	if err != nil {
		return err
	}
	if role.IsSystemRole {
		return apperr.New(apperr.CodePermissionDenied, "system roles cannot be deleted")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", roleID).Delete(&models.UserChurchRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ChurchRole{}, roleID).Error
	})
	if err != nil {
		return apperr.Normalize(err)
	}

	s.cache.InvalidateChurch(role.ChurchID)
	logger.Info().Uint("role_id", roleID).Str("role", role.Name).Msg("role deleted")
	return nil
}

// AssignRoleToUser assigns a role. Both the role and the target user must
// belong to the given church. Assignment is idempotent: a duplicate
// assignment is logged and treated as success.
func (s *PermissionService) AssignRoleToUser(ctx context.Context, churchID, userID, roleID uint, assignedBy *uint) error {
	role, err := s.getChurchRole(ctx, churchID, roleID)
	if err != nil {
		return err
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.CodeNotFound, "user not found")
		}
		return apperr.Normalize(err)
	}
	if user.ChurchID == nil || *user.ChurchID != churchID {
		return apperr.New(apperr.CodeValidation, "user is not a member of this church")
	}

	assignment := models.UserChurchRole{
		UserID:     userID,
		ChurchID:   role.ChurchID,
		RoleID:     roleID,
		AssignedBy: assignedBy,
	}
	if err := s.db.WithContext(ctx).Create(&assignment).Error; err != nil {
		if apperr.IsConflict(err) {
			logger.Infof("[Permission] role %d already assigned to user %d", roleID, userID)
			s.cache.InvalidateChurch(role.ChurchID)
			return nil
		}
		return apperr.Normalize(err)
	}

	s.cache.InvalidateChurch(role.ChurchID)
	logger.Info().Uint("user_id", userID).Uint("role_id", roleID).Msg("role assigned")
	return nil
}

// RemoveRoleFromUser revokes a role assignment. Unlike assign, a missing
// assignment is an error.
func (s *PermissionService) RemoveRoleFromUser(ctx context.Context, churchID, userID, roleID uint) error {
	role, err := s.getChurchRole(ctx, churchID, roleID)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&models.UserChurchRole{})
	if result.Error != nil {
		return apperr.Normalize(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.CodeNotFound, "role assignment not found")
	}

	s.cache.InvalidateChurch(role.ChurchID)
	logger.Info().Uint("user_id", userID).Uint("role_id", roleID).Msg("role removed")
	return nil
}

// getChurchRole loads a role and verifies it belongs to the caller's
// church. Holding a role-admin key in one church grants nothing over
// another church's roles.
func (s *PermissionService) getChurchRole(ctx context.Context, churchID, roleID uint) (*models.ChurchRole, error) {
	var role models.ChurchRole
	if err := s.db.WithContext(ctx).First(&role, roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.CodeNotFound, "role not found")
		}
		return nil, apperr.Normalize(err)
	}
	if role.ChurchID != churchID {
		return nil, apperr.New(apperr.CodePermissionDenied, "role belongs to another church")
	}
	return &role, nil
}

func createRolePermissions(tx *gorm.DB, roleID uint, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	associations := make([]models.RolePermission, 0, len(keys))
	for _, key := range keys {
		associations = append(associations, models.RolePermission{RoleID: roleID, PermissionKey: key})
	}
	return tx.Create(&associations).Error
}
