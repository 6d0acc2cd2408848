// Package dbtest opens throwaway SQLite databases migrated with the production models.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"localbiz/internal/db"
	"localbiz/internal/model"
)

// Open returns a fresh in-memory database. It holds a single connection, so concurrent
// transactions run one after another the way row locks serialize them on MySQL.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := db.GormConfig()
	cfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)

	gdb, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func mustCreate(t testing.TB, gdb *gorm.DB, value interface{}) {
	t.Helper()
	if err := gdb.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}

// User inserts a user with the given role.
func User(t testing.TB, gdb *gorm.DB, email string, role model.Role) *model.User {
	t.Helper()
	user := &model.User{FullName: "Test " + string(role), Email: email, PasswordHash: "x", Role: role}
	mustCreate(t, gdb, user)
	return user
}

// Provider inserts an active provider operated by owner.
func Provider(t testing.TB, gdb *gorm.DB, owner *model.User, name string) *model.Provider {
	t.Helper()
	provider := &model.Provider{UserID: &owner.ID, Name: name, Status: model.ProviderStatusActive}
	mustCreate(t, gdb, provider)
	return provider
}

// Service inserts an active service.
func Service(t testing.TB, gdb *gorm.DB, provider *model.Provider, name string, price int64) *model.Service {
	t.Helper()
	svc := &model.Service{ProviderID: provider.ID, Name: name, Price: decimal.NewFromInt(price), DurationMinutes: 60, Active: true}
	mustCreate(t, gdb, svc)
	return svc
}

// Product inserts an active product.
func Product(t testing.TB, gdb *gorm.DB, provider *model.Provider, name string, price int64, stock int) *model.Product {
	t.Helper()
	product := &model.Product{ProviderID: provider.ID, Name: name, Price: decimal.NewFromInt(price), Stock: stock, Active: true}
	mustCreate(t, gdb, product)
	return product
}

// Stock reads the current stock of a product.
func Stock(t testing.TB, gdb *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product model.Product
	if err := gdb.Unscoped().Where("id = ?", productID).First(&product).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}
