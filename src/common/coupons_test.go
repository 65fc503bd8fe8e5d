package common

import (
	"fleetbook/src/models"
	"fleetbook/src/types"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCoupon(t *testing.T, gdb *gorm.DB, mutate func(*models.Coupon)) *models.Coupon {
	t.Helper()
	coupon := models.Coupon{
		Code:               "WELCOME10",
		DiscountType:       types.DISCOUNT_PERCENTAGE,
		DiscountValue:      10,
		MinimumOrderAmount: 20,
		UserUsageLimit:     1,
		ValidFrom:          time.Now().Add(-time.Hour),
		ValidUntil:         time.Now().Add(time.Hour),
		Status:             types.COUPON_ACTIVE,
	}
	if mutate != nil {
		mutate(&coupon)
	}
	require.NoError(t, gdb.Create(&coupon).Error)
	return &coupon
}

func TestValidateCoupon(t *testing.T) {
	t.Run("unknown code", func(t *testing.T) {
		gdb := newTestDB(t)
		check, err := ValidateCoupon(gdb, "NOPE", 1, 100, "customer", "AMS-RTM")
		require.NoError(t, err)
		assert.False(t, check.Valid)
		assert.Equal(t, "coupon not found", check.Reason)
	})

	t.Run("inactive coupon", func(t *testing.T) {
		gdb := newTestDB(t)
		seedCoupon(t, gdb, func(c *models.Coupon) { c.Status = types.COUPON_INACTIVE })
		check, err := ValidateCoupon(gdb, "WELCOME10", 1, 100, "customer", "")
		require.NoError(t, err)
		assert.False(t, check.Valid)
		assert.Equal(t, "coupon is not active", check.Reason)
	})

	t.Run("outside validity window", func(t *testing.T) {
		gdb := newTestDB(t)
		seedCoupon(t, gdb, func(c *models.Coupon) {
			c.ValidFrom = time.Now().Add(-2 * time.Hour)
			c.ValidUntil = time.Now().Add(-time.Hour)
		})
		check, err := ValidateCoupon(gdb, "WELCOME10", 1, 100, "customer", "")
		require.NoError(t, err)
		assert.False(t, check.Valid)
		assert.Equal(t, "coupon is outside its validity window", check.Reason)
	})

	t.Run("below minimum order", func(t *testing.T) {
		gdb := newTestDB(t)
		seedCoupon(t, gdb, nil)
		check, err := ValidateCoupon(gdb, "WELCOME10", 1, 19.99, "customer", "")
		require.NoError(t, err)
		assert.False(t, check.Valid)
		assert.Equal(t, "order amount is below the coupon minimum", check.Reason)
	})

	t.Run("user type allow list", func(t *testing.T) {
		gdb := newTestDB(t)
		seedCoupon(t, gdb, func(c *models.Coupon) {
			c.ApplicableUserTypes = types.NewJSONBArray([]string{"business"})
		})
		check, err := ValidateCoupon(gdb, "WELCOME10", 1, 100, "customer", "")
		require.NoError(t, err)
		assert.False(t, check.Valid)

		check, err = ValidateCoupon(gdb, "WELCOME10", 1, 100, "business", "")
		require.NoError(t, err)
		assert.True(t, check.Valid)
	})

	t.Run("route allow list", func(t *testing.T) {
		gdb := newTestDB(t)
		seedCoupon(t, gdb, func(c *models.Coupon) {
			c.ApplicableRoutes = types.NewJSONBArray([]string{"AMS-RTM"})
		})
		check, err := ValidateCoupon(gdb, "WELCOME10", 1, 100, "customer", "AMS-UTC")
		require.NoError(t, err)
		assert.False(t, check.Valid)
		assert.Equal(t, "coupon is not applicable to this route", check.Reason)
	})

	t.Run("percentage discount with cap", func(t *testing.T) {
		gdb := newTestDB(t)
		maxDiscount := 5.0
		seedCoupon(t, gdb, func(c *models.Coupon) { c.MaximumDiscountAmount = &maxDiscount })
		check, err := ValidateCoupon(gdb, "WELCOME10", 1, 200, "customer", "")
		require.NoError(t, err)
		assert.True(t, check.Valid)
		assert.Equal(t, 5.0, check.DiscountAmount)
		assert.Equal(t, 195.0, check.FinalAmount)
	})

	t.Run("fixed discount never exceeds order", func(t *testing.T) {
		gdb := newTestDB(t)
		seedCoupon(t, gdb, func(c *models.Coupon) {
			c.DiscountType = types.DISCOUNT_FIXED_AMOUNT
			c.DiscountValue = 50
			c.MinimumOrderAmount = 0
		})
		check, err := ValidateCoupon(gdb, "WELCOME10", 1, 30, "customer", "")
		require.NoError(t, err)
		assert.True(t, check.Valid)
		assert.Equal(t, 30.0, check.DiscountAmount)
		assert.Equal(t, 0.0, check.FinalAmount)
	})

	t.Run("per user limit counted from ledger", func(t *testing.T) {
		gdb := newTestDB(t)
		coupon := seedCoupon(t, gdb, nil)
		require.NoError(t, gdb.Create(&models.CouponUsage{
			CouponID: coupon.ID, UserID: 7, BookingID: 1, UsedAt: time.Now(),
		}).Error)
		check, err := ValidateCoupon(gdb, "WELCOME10", 7, 100, "customer", "")
		require.NoError(t, err)
		assert.False(t, check.Valid)
		assert.Equal(t, "coupon already redeemed by this user", check.Reason)

		check, err = ValidateCoupon(gdb, "WELCOME10", 8, 100, "customer", "")
		require.NoError(t, err)
		assert.True(t, check.Valid)
	})

	t.Run("global limit counted from ledger", func(t *testing.T) {
		gdb := newTestDB(t)
		limit := uint(1)
		coupon := seedCoupon(t, gdb, func(c *models.Coupon) { c.UsageLimit = &limit })
		require.NoError(t, gdb.Create(&models.CouponUsage{
			CouponID: coupon.ID, UserID: 7, BookingID: 1, UsedAt: time.Now(),
		}).Error)
		check, err := ValidateCoupon(gdb, "WELCOME10", 8, 100, "customer", "")
		require.NoError(t, err)
		assert.False(t, check.Valid)
		assert.Equal(t, "coupon usage limit reached", check.Reason)
	})
}

func TestRedeemCoupon(t *testing.T) {
	t.Run("writes ledger row and bumps counter", func(t *testing.T) {
		gdb := newTestDB(t)
		coupon := seedCoupon(t, gdb, nil)
		err := gdb.Transaction(func(tx *gorm.DB) error {
			return RedeemCoupon(tx, coupon, 1, 10, 7.50)
		})
		require.NoError(t, err)

		var reloaded models.Coupon
		require.NoError(t, gdb.First(&reloaded, coupon.ID).Error)
		assert.Equal(t, uint(1), reloaded.UsageCount)

		var usage models.CouponUsage
		require.NoError(t, gdb.Where("coupon_id = ?", coupon.ID).First(&usage).Error)
		assert.Equal(t, uint(10), usage.BookingID)
		assert.Equal(t, 7.50, usage.DiscountApplied)
	})

	t.Run("second redemption by same user fails", func(t *testing.T) {
		gdb := newTestDB(t)
		coupon := seedCoupon(t, gdb, nil)
		require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
			return RedeemCoupon(tx, coupon, 1, 10, 5)
		}))
		err := gdb.Transaction(func(tx *gorm.DB) error {
			return RedeemCoupon(tx, coupon, 1, 11, 5)
		})
		assert.ErrorIs(t, err, ErrCouponExhausted)
	})

	t.Run("one slot left admits exactly one concurrent redeemer", func(t *testing.T) {
		gdb := newTestDB(t)
		limit := uint(1)
		coupon := seedCoupon(t, gdb, func(c *models.Coupon) { c.UsageLimit = &limit })

		var wg sync.WaitGroup
		results := make([]error, 2)
		for i := range results {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				results[n] = gdb.Transaction(func(tx *gorm.DB) error {
					return RedeemCoupon(tx, coupon, uint(100+n), uint(200+n), 5)
				})
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, err := range results {
			if err == nil {
				winners++
			} else {
				assert.ErrorIs(t, err, ErrCouponExhausted)
			}
		}
		assert.Equal(t, 1, winners)

		var ledger int64
		require.NoError(t, gdb.Model(&models.CouponUsage{}).Where("coupon_id = ?", coupon.ID).Count(&ledger).Error)
		assert.Equal(t, int64(1), ledger)

		var reloaded models.Coupon
		require.NoError(t, gdb.First(&reloaded, coupon.ID).Error)
		assert.Equal(t, uint(1), reloaded.UsageCount)
	})
}

func TestReconcileCouponUsageCounts(t *testing.T) {
	gdb := newTestDB(t)
	coupon := seedCoupon(t, gdb, nil)
	require.NoError(t, gdb.Create(&models.CouponUsage{
		CouponID: coupon.ID, UserID: 1, BookingID: 1, UsedAt: time.Now(),
	}).Error)
	require.NoError(t, gdb.Create(&models.CouponUsage{
		CouponID: coupon.ID, UserID: 2, BookingID: 2, UsedAt: time.Now(),
	}).Error)
	// counter deliberately left at zero to simulate drift
	require.NoError(t, ReconcileCouponUsageCounts(gdb))

	var reloaded models.Coupon
	require.NoError(t, gdb.First(&reloaded, coupon.ID).Error)
	assert.Equal(t, uint(2), reloaded.UsageCount)
}
