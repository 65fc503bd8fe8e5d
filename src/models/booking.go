package models

import (
	"fleetbook/src/types"
	"time"
)

type Booking struct {
	ID               uint   `gorm:"primarykey" json:"id"`
	BookingReference string `gorm:"uniqueIndex" json:"booking_reference,omitempty"`
	UserID           uint   `json:"user_id,omitempty"`
	CompanyID        *uint  `json:"company_id,omitempty"`
	RouteFareID      uint   `json:"route_fare_id,omitempty"`
	AssignedDriverID *uint  `json:"assigned_driver_id,omitempty"`
	AssignedCarID    *uint  `json:"assigned_car_id,omitempty"`

	PassengerName   string         `json:"passenger_name,omitempty"`
	PassengerPhone  string         `json:"passenger_phone,omitempty"`
	PassengerEmail  string         `json:"passenger_email,omitempty"`
	PassengerCount  uint8          `gorm:"default:1" json:"passenger_count,omitempty"`
	FareType        types.FareType `gorm:"default:'sale'" json:"fare_type,omitempty"`
	PickupTime      time.Time      `json:"pickup_time,omitempty"`
	PickupLocation  string         `json:"pickup_location,omitempty"`
	DropoffLocation string         `json:"dropoff_location,omitempty"`

	BaseAmount     float64 `json:"base_amount"`
	DiscountAmount float64 `json:"discount_amount"`
	TaxAmount      float64 `json:"tax_amount"`
	TotalAmount    float64 `json:"total_amount"`
	Currency       string  `gorm:"default:'eur'" json:"currency,omitempty"`
	CouponID       *uint   `json:"coupon_id,omitempty"`

	BookingStatus types.BookingStatus `gorm:"default:'pending'" json:"booking_status,omitempty"`
	PaymentStatus types.PaymentStatus `gorm:"default:'pending'" json:"payment_status,omitempty"`
	CancelReason  *string             `json:"cancel_reason,omitempty"`

	ActualPickupTime  *time.Time `json:"actual_pickup_time,omitempty"`
	ActualDropoffTime *time.Time `json:"actual_dropoff_time,omitempty"`
	ActualDistanceKM  *float64   `json:"actual_distance_km,omitempty"`

	User      *User      `gorm:"foreignKey:user_id" json:"user,omitempty"`
	Company   *Company   `gorm:"foreignKey:company_id" json:"company,omitempty"`
	RouteFare *RouteFare `gorm:"foreignKey:route_fare_id" json:"route_fare,omitempty"`
	Coupon    *Coupon    `gorm:"foreignKey:coupon_id" json:"coupon,omitempty"`

	types.Timestamps
}
