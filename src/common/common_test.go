package common

import (
	"fleetbook/src/models"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database. The pool is capped at one
// connection so concurrent transactions serialize instead of hitting
// SQLITE_BUSY.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("error opening database: %s", err.Error())
	}
	inner, err := gdb.DB()
	if err != nil {
		t.Fatalf("error accessing inner db instance: %s", err.Error())
	}
	inner.SetMaxOpenConns(1)
	if err := gdb.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.Driver{},
		&models.Car{},
		&models.RouteFare{},
		&models.Booking{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.Payment{},
		&models.Commission{},
		&models.PaymentMethodConfig{},
	); err != nil {
		t.Fatalf("error migration: %s", err.Error())
	}
	return gdb
}
