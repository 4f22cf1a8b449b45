package models

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setTestDB(t *testing.T, migrate bool) {
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

	if migrate {
		if err := db.AutoMigrate(&Permission{}); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}

	prev := DB
	DB = db
	t.Cleanup(func() { DB = prev })
}

func TestSeedDefaultData_Idempotent(t *testing.T) {
	setTestDB(t, true)

	if err := SeedDefaultData(); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if err := SeedDefaultData(); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var count int64
	if err := DB.Model(&Permission{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != int64(len(PermissionCatalog)) {
		t.Errorf("permissions = %d, want %d", count, len(PermissionCatalog))
	}
}

func TestSeedDefaultData_SurfacesStoreErrors(t *testing.T) {
	// Without the permissions table the existence check itself fails, and
	// the seed must report that instead of blindly inserting.
	setTestDB(t, false)

	if err := SeedDefaultData(); err == nil {
		t.Error("expected error seeding against an unmigrated store")
	}
}
