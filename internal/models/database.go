package models

import (
	"fmt"

	"github.com/congregate/backend/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&User{},
		&Church{},
		&MembershipRequest{},
		&Permission{},
		&ChurchRole{},
		&RolePermission{},
		&UserChurchRole{},
		&Team{},
		&TeamMember{},
		&TeamGroup{},
		&TeamGroupMember{},
		&TeamCalendarEvent{},
		&TeamCalendarEventMember{},
		&TeamDocument{},
		&UserSetting{},
		&Notification{},
		&RefreshToken{},
		&SystemLog{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// PermissionCatalog is the global set of grantable capabilities, seeded at
// startup. Keys are stable identifiers; the mobile client and the permission
// middleware both branch on them.
var PermissionCatalog = []Permission{
	{Key: "church:update", Description: "Edit church profile", Category: "church"},
	{Key: "church:delete", Description: "Delete the church", Category: "church"},
	{Key: "members:view", Description: "View church members", Category: "members"},
	{Key: "members:remove", Description: "Remove members from the church", Category: "members"},
	{Key: "requests:view", Description: "View membership requests", Category: "requests"},
	{Key: "requests:review", Description: "Accept or decline membership requests", Category: "requests"},
	{Key: "roles:view", Description: "View church roles", Category: "roles"},
	{Key: "roles:create", Description: "Create church roles", Category: "roles"},
	{Key: "roles:update", Description: "Edit church roles", Category: "roles"},
	{Key: "roles:delete", Description: "Delete church roles", Category: "roles"},
	{Key: "roles:assign", Description: "Assign roles to members", Category: "roles"},
	{Key: "teams:create", Description: "Create teams", Category: "teams"},
	{Key: "teams:manage", Description: "Manage teams, groups and events", Category: "teams"},
	{Key: "documents:upload", Description: "Upload team documents", Category: "teams"},
}

// System role names seeded for every church at registration.
const (
	RolePastor = "Pastor"
	RoleMember = "Member"
)

// SeedDefaultData inserts the permission catalog entries that don't exist yet.
func SeedDefaultData() error {
	for _, perm := range PermissionCatalog {
		var count int64
		if err := DB.Model(&Permission{}).
			Where(map[string]interface{}{"key": perm.Key}).
			Count(&count).Error; err != nil {
			return fmt.Errorf("seed permission %s: %w", perm.Key, err)
		}
		if count == 0 {
			p := perm
			if err := DB.Create(&p).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// AllPermissionKeys returns every key in the catalog, in seed order.
func AllPermissionKeys() []string {
	keys := make([]string, 0, len(PermissionCatalog))
	for _, p := range PermissionCatalog {
		keys = append(keys, p.Key)
	}
	return keys
}
