package services

import (
	"testing"

	"github.com/congregate/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Church{},
		&models.MembershipRequest{},
		&models.Permission{},
		&models.ChurchRole{},
		&models.RolePermission{},
		&models.UserChurchRole{},
		&models.Team{},
		&models.TeamMember{},
		&models.TeamGroup{},
		&models.TeamGroupMember{},
		&models.TeamCalendarEvent{},
		&models.TeamCalendarEventMember{},
		&models.TeamDocument{},
		&models.UserSetting{},
		&models.Notification{},
		&models.RefreshToken{},
		&models.SystemLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, perm := range models.PermissionCatalog {
		p := perm
		p.ID = 0
		if err := db.Create(&p).Error; err != nil {
			t.Fatalf("seed catalog: %v", err)
		}
	}
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{Email: email, Password: "x", FullName: "Test User", IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &user
}

func seedChurch(t *testing.T, db *gorm.DB, name string, createdBy uint) *models.Church {
	t.Helper()
	church := models.Church{Name: name, Denomination: "Baptist", Location: "Springfield", CreatedBy: createdBy}
	if err := db.Create(&church).Error; err != nil {
		t.Fatalf("seed church: %v", err)
	}
	return &church
}

// seedReviewer gives the user a role holding requests:review in the church.
func seedReviewer(t *testing.T, db *gorm.DB, userID, churchID uint) {
	t.Helper()
	role := models.ChurchRole{ChurchID: churchID, Name: "Reviewer", IsSystemRole: false}
	if err := db.Create(&role).Error; err != nil {
		t.Fatalf("seed role: %v", err)
	}
	assoc := models.RolePermission{RoleID: role.ID, PermissionKey: "requests:review"}
	if err := db.Create(&assoc).Error; err != nil {
		t.Fatalf("seed role perm: %v", err)
	}
	assignment := models.UserChurchRole{UserID: userID, ChurchID: churchID, RoleID: role.ID}
	if err := db.Create(&assignment).Error; err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
}

// seedMemberRole creates the Member system role granted to accepted
// applicants.
func seedMemberRole(t *testing.T, db *gorm.DB, churchID uint) *models.ChurchRole {
	t.Helper()
	role := models.ChurchRole{ChurchID: churchID, Name: models.RoleMember, IsSystemRole: true}
	if err := db.Create(&role).Error; err != nil {
		t.Fatalf("seed member role: %v", err)
	}
	assoc := models.RolePermission{RoleID: role.ID, PermissionKey: "members:view"}
	if err := db.Create(&assoc).Error; err != nil {
		t.Fatalf("seed member role perm: %v", err)
	}
	return &role
}

// newSyncNotifier returns a notification service backed by an inline queue,
// so notification rows land synchronously during tests.
func newSyncNotifier(db *gorm.DB) *NotificationService {
	queue := NewSyncQueue()
	notifier := NewNotificationService(db, queue)
	queue.SetProcessor(notifier.Deliver)
	return notifier
}
