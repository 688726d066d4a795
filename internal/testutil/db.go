// Package testutil provides an in-memory database and a fake payment gateway for tests.
package testutil

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-rental-ws/internal/model"
	"go-rental-ws/internal/repository"
)

// NewDB opens a private in-memory SQLite database with the full schema and
// default roles. One connection keeps every query on the same database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(model.Tables...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := repository.NewPrivilegeRepo(db).SeedDefaults(); err != nil {
		t.Fatalf("seed privileges: %v", err)
	}
	if err := repository.NewRoleRepo(db).SeedDefaults(); err != nil {
		t.Fatalf("seed roles: %v", err)
	}
	return db
}

// Logger discards output unless the test runs with -v.
func Logger(t *testing.T) *logrus.Logger {
	t.Helper()
	log := logrus.New()
	if !testing.Verbose() {
		log.SetOutput(io.Discard)
	}
	return log
}

func Location() *time.Location {
	return time.FixedZone("WIB", 7*60*60)
}

// SeedVehicle inserts an available vehicle with the given daily rate.
func SeedVehicle(t *testing.T, db *gorm.DB, dailyRate int64) *model.Vehicle {
	t.Helper()
	v := &model.Vehicle{
		Make:         "Toyota",
		Model:        "Avanza",
		Year:         2022,
		PlateNumber:  "B " + uuid.NewString()[:8],
		Type:         "MPV",
		Transmission: "manual",
		Capacity:     7,
		DailyRate:    dailyRate,
		Status:       model.VehicleAvailable,
	}
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	return v
}

// SeedUser inserts an active user with the given role code and password "rahasia".
func SeedUser(t *testing.T, db *gorm.DB, roleCode string) *model.User {
	t.Helper()
	role, err := repository.NewRoleRepo(db).FindByCode(roleCode)
	if err != nil {
		t.Fatalf("role %s: %v", roleCode, err)
	}
	u := &model.User{
		Email:       uuid.NewString()[:8] + "@example.com",
		FullName:    "Budi Santoso",
		PhoneNumber: "081298765432",
		RoleID:      &role.ID,
		IsActive:    true,
	}
	if err := u.SetPassword("rahasia"); err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	u.Role = role
	return u
}

// SeedOrder inserts a pending order that already holds the vehicle.
func SeedOrder(t *testing.T, db *gorm.DB, vehicle *model.Vehicle, user *model.User, days int) *model.Order {
	t.Helper()
	start := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	o := &model.Order{
		Code:          "RENT-20250110-" + fmt.Sprintf("%06X", uuid.New().ID()&0xFFFFFF),
		VehicleID:     vehicle.ID,
		UserID:        user.ID,
		StartDate:     start,
		EndDate:       start.AddDate(0, 0, days-1),
		DurationDays:  days,
		TotalPrice:    vehicle.DailyRate * int64(days),
		PaymentStatus: model.PaymentPending,
		Status:        model.OrderPending,
	}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	if err := db.Model(&model.Vehicle{}).Where("id = ?", vehicle.ID).Update("status", model.VehicleRented).Error; err != nil {
		t.Fatalf("reserve vehicle: %v", err)
	}
	return o
}
