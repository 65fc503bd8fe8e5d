package models

import (
	"fleetbook/src/types"
	"time"
)

type Coupon struct {
	ID                    uint               `gorm:"primarykey" json:"id"`
	Code                  string             `gorm:"uniqueIndex" json:"code,omitempty"`
	DiscountType          types.DiscountType `json:"discount_type,omitempty"`
	DiscountValue         float64            `json:"discount_value,omitempty"`
	MinimumOrderAmount    float64            `json:"minimum_order_amount,omitempty"`
	MaximumDiscountAmount *float64           `json:"maximum_discount_amount,omitempty"`
	UsageLimit            *uint              `json:"usage_limit,omitempty"`
	UserUsageLimit        uint               `gorm:"default:1" json:"user_usage_limit,omitempty"`
	ValidFrom             time.Time          `json:"valid_from,omitempty"`
	ValidUntil            time.Time          `json:"valid_until,omitempty"`
	ApplicableUserTypes   types.JSONBArray   `gorm:"type:jsonb" json:"applicable_user_types,omitempty"`
	ApplicableRoutes      types.JSONBArray   `gorm:"type:jsonb" json:"applicable_routes,omitempty"`
	Status                types.CouponStatus `gorm:"default:'active'" json:"status,omitempty"`

	// Denormalized counter. The CouponUsage rows are the source of truth;
	// this is only ever moved by the guarded redeem update or the
	// reconciliation job.
	UsageCount uint `json:"usage_count"`

	Usages []CouponUsage `gorm:"foreignKey:coupon_id" json:"usages,omitempty"`

	types.Timestamps
}

// CouponUsage is one immutable ledger row per redemption.
type CouponUsage struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	CouponID        uint      `gorm:"uniqueIndex:idx_coupon_booking" json:"coupon_id,omitempty"`
	UserID          uint      `json:"user_id,omitempty"`
	BookingID       uint      `gorm:"uniqueIndex:idx_coupon_booking" json:"booking_id,omitempty"`
	DiscountApplied float64   `json:"discount_applied"`
	UsedAt          time.Time `json:"used_at,omitempty"`

	Coupon  Coupon  `gorm:"foreignKey:coupon_id" json:"-"`
	Booking Booking `gorm:"foreignKey:booking_id" json:"-"`
}
