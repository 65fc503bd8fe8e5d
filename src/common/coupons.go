package common

import (
	"errors"
	"fleetbook/src/models"
	"fleetbook/src/types"
	"log"
	"math"
	"time"

	"gorm.io/gorm"
)

// CouponCheck is the outcome of a validation pass. Business rejections set
// Valid=false with a Reason; only infrastructure failures surface as errors.
type CouponCheck struct {
	Valid          bool           `json:"valid"`
	DiscountAmount float64        `json:"discount_amount"`
	FinalAmount    float64        `json:"final_amount"`
	Reason         string         `json:"reason,omitempty"`
	Coupon         *models.Coupon `json:"-"`
}

func failedCheck(reason string) *CouponCheck {
	return &CouponCheck{Valid: false, Reason: reason}
}

// ValidateCoupon runs the redemption checks in order, short-circuiting on the
// first failure. Usage limits are counted from the CouponUsage ledger rows,
// not the denormalized counter.
func ValidateCoupon(db *gorm.DB, code string, userID uint, orderAmount float64, userType, route string) (*CouponCheck, error) {
	var coupon models.Coupon
	if err := db.Where("code = ?", code).First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return failedCheck("coupon not found"), nil
		}
		return nil, err
	}
	if coupon.Status != types.COUPON_ACTIVE {
		return failedCheck("coupon is not active"), nil
	}
	now := time.Now()
	if now.Before(coupon.ValidFrom) || now.After(coupon.ValidUntil) {
		return failedCheck("coupon is outside its validity window"), nil
	}
	if orderAmount < coupon.MinimumOrderAmount {
		return failedCheck("order amount is below the coupon minimum"), nil
	}
	if len(coupon.ApplicableUserTypes) > 0 && !coupon.ApplicableUserTypes.Contains(userType) {
		return failedCheck("coupon is not applicable to this user type"), nil
	}
	if len(coupon.ApplicableRoutes) > 0 && !coupon.ApplicableRoutes.Contains(route) {
		return failedCheck("coupon is not applicable to this route"), nil
	}
	if coupon.UsageLimit != nil {
		var used int64
		if err := db.Model(&models.CouponUsage{}).Where("coupon_id = ?", coupon.ID).Count(&used).Error; err != nil {
			return nil, err
		}
		if used >= int64(*coupon.UsageLimit) {
			return failedCheck("coupon usage limit reached"), nil
		}
	}
	var usedByUser int64
	if err := db.Model(&models.CouponUsage{}).Where("coupon_id = ? AND user_id = ?", coupon.ID, userID).Count(&usedByUser).Error; err != nil {
		return nil, err
	}
	if usedByUser >= int64(coupon.UserUsageLimit) {
		return failedCheck("coupon already redeemed by this user"), nil
	}

	discount := computeDiscount(&coupon, orderAmount)
	return &CouponCheck{
		Valid:          true,
		DiscountAmount: discount,
		FinalAmount:    RoundCents(orderAmount - discount),
		Coupon:         &coupon,
	}, nil
}

func computeDiscount(coupon *models.Coupon, orderAmount float64) float64 {
	var discount float64
	switch coupon.DiscountType {
	case types.DISCOUNT_PERCENTAGE:
		discount = orderAmount * coupon.DiscountValue / 100
		if coupon.MaximumDiscountAmount != nil {
			discount = math.Min(discount, *coupon.MaximumDiscountAmount)
		}
	case types.DISCOUNT_FIXED_AMOUNT:
		discount = math.Min(coupon.DiscountValue, orderAmount)
	}
	return RoundCents(discount)
}

// RedeemCoupon must run inside the same transaction that creates the booking.
// The guarded counter update is the serialization point: with one usage slot
// left, exactly one concurrent redeemer wins and the rest get
// ErrCouponExhausted.
func RedeemCoupon(tx *gorm.DB, coupon *models.Coupon, userID, bookingID uint, discountApplied float64) error {
	res := tx.Model(&models.Coupon{}).
		Where("id = ? AND status = ?", coupon.ID, types.COUPON_ACTIVE).
		Where("usage_limit IS NULL OR usage_count < usage_limit").
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCouponExhausted
	}

	// The counter update holds the coupon row, so this count cannot race
	// another redeemer of the same coupon.
	var usedByUser int64
	if err := tx.Model(&models.CouponUsage{}).Where("coupon_id = ? AND user_id = ?", coupon.ID, userID).Count(&usedByUser).Error; err != nil {
		return err
	}
	if usedByUser >= int64(coupon.UserUsageLimit) {
		return ErrCouponExhausted
	}

	usage := models.CouponUsage{
		CouponID:        coupon.ID,
		UserID:          userID,
		BookingID:       bookingID,
		DiscountApplied: discountApplied,
		UsedAt:          time.Now(),
	}
	return tx.Create(&usage).Error
}

// ReconcileCouponUsageCounts recomputes every denormalized usage counter from
// the ledger. Run periodically; the ledger rows win on drift.
func ReconcileCouponUsageCounts(db *gorm.DB) error {
	var coupons []models.Coupon
	if err := db.Select("id", "usage_count").Find(&coupons).Error; err != nil {
		return err
	}
	for _, coupon := range coupons {
		var used int64
		if err := db.Model(&models.CouponUsage{}).Where("coupon_id = ?", coupon.ID).Count(&used).Error; err != nil {
			return err
		}
		if uint(used) == coupon.UsageCount {
			continue
		}
		log.Printf("[CouponReconcile] coupon %d counter drifted: counter=%d ledger=%d\n", coupon.ID, coupon.UsageCount, used)
		if err := db.Model(&models.Coupon{}).
			Where("id = ?", coupon.ID).
			UpdateColumn("usage_count", used).
			Error; err != nil {
			return err
		}
	}
	return nil
}
