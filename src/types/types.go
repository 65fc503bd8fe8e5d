package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any
type JSONBArray []any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, &a)
}

func (a JSONBArray) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONBArray) Scan(value any) error {
	b, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, &a)
}

// sqlite hands back TEXT columns as string, postgres jsonb as []byte
func jsonbBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported type for JSONB column")
	}
}

// Strings returns the array as plain strings, dropping non-string members.
func (a JSONBArray) Strings() []string {
	out := make([]string, 0, len(a))
	for _, v := range a {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// NewJSONBArray wraps a string slice for storage in a jsonb column.
func NewJSONBArray(values []string) JSONBArray {
	out := make(JSONBArray, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func (a JSONBArray) Contains(s string) bool {
	for _, v := range a.Strings() {
		if v == s {
			return true
		}
	}
	return false
}

type Metadata map[string]any

// Handler consumes a raw message body from a queue consumer.
type Handler func(body string)

type APIEnv string

const (
	Local      APIEnv = "local"
	Test       APIEnv = "test"
	Production APIEnv = "production"
)

type BookingStatus string

const (
	BOOKING_PENDING         BookingStatus = "pending"
	BOOKING_CONFIRMED       BookingStatus = "confirmed"
	BOOKING_ASSIGNED        BookingStatus = "assigned"
	BOOKING_IN_AUCTION      BookingStatus = "in_auction"
	BOOKING_AUCTION_AWARDED BookingStatus = "auction_awarded"
	BOOKING_IN_PROGRESS     BookingStatus = "in_progress"
	BOOKING_COMPLETED       BookingStatus = "completed"
	BOOKING_CANCELLED       BookingStatus = "cancelled"
)

// Terminal reports whether no further lifecycle operation may leave the status.
func (s BookingStatus) Terminal() bool {
	return s == BOOKING_COMPLETED || s == BOOKING_CANCELLED
}

type PaymentStatus string

const (
	PAYMENT_PENDING  PaymentStatus = "pending"
	PAYMENT_PAID     PaymentStatus = "paid"
	PAYMENT_FAILED   PaymentStatus = "failed"
	PAYMENT_REFUNDED PaymentStatus = "refunded"
)

type CommissionStatus string

const (
	COMMISSION_PENDING  CommissionStatus = "pending"
	COMMISSION_APPROVED CommissionStatus = "approved"
	COMMISSION_PAID     CommissionStatus = "paid"
	COMMISSION_REJECTED CommissionStatus = "rejected"
)

type CouponStatus string

const (
	COUPON_ACTIVE   CouponStatus = "active"
	COUPON_INACTIVE CouponStatus = "inactive"
	COUPON_EXPIRED  CouponStatus = "expired"
)

type DiscountType string

const (
	DISCOUNT_PERCENTAGE   DiscountType = "percentage"
	DISCOUNT_FIXED_AMOUNT DiscountType = "fixed_amount"
)

type FareType string

const (
	FARE_SALE     FareType = "sale"
	FARE_BUSINESS FareType = "business"
)

// BankTransferType is a payment-collection rail offered for a country/currency pair.
type BankTransferType string

const (
	RAIL_SEPA_DEBIT       BankTransferType = "sepa_debit"
	RAIL_ACH_DEBIT        BankTransferType = "ach_debit"
	RAIL_IDEAL            BankTransferType = "ideal"
	RAIL_GIROPAY          BankTransferType = "giropay"
	RAIL_BANCONTACT       BankTransferType = "bancontact"
	RAIL_EPS              BankTransferType = "eps"
	RAIL_PRZELEWY24       BankTransferType = "przelewy24"
	RAIL_FPX              BankTransferType = "fpx"
	RAIL_CUSTOMER_BALANCE BankTransferType = "customer_balance"
)

const PAYMENT_METHOD_CARD = "card"

type Claims struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	CompanyID uint   `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type CreateBookingRequestBody struct {
	RouteFareID     uint    `json:"route_fare_id" binding:"required"`
	FareType        string  `json:"fare_type,omitempty" binding:"omitempty,oneof=sale business"`
	PassengerName   string  `json:"passenger_name" binding:"required"`
	PassengerPhone  string  `json:"passenger_phone,omitempty"`
	PassengerEmail  string  `json:"passenger_email,omitempty" binding:"omitempty,email"`
	PassengerCount  uint8   `json:"passenger_count,omitempty"`
	PickupTime      string  `json:"pickup_time" binding:"required,bookabledate"`
	PickupLocation  string  `json:"pickup_location" binding:"required"`
	DropoffLocation string  `json:"dropoff_location" binding:"required"`
	CompanyID       *uint   `json:"company_id,omitempty"`
	CouponCode      string  `json:"coupon_code,omitempty"`
	Currency        string  `json:"currency,omitempty"`
}

type AssignRequestBody struct {
	DriverID uint `json:"driver_id" binding:"required"`
	CarID    uint `json:"car_id" binding:"required"`
}

type CancelBookingRequestBody struct {
	Reason string `json:"reason" binding:"required"`
}

type CompleteTripRequestBody struct {
	ActualDistanceKM *float64 `json:"actual_distance_km,omitempty"`
}

type CreatePaymentRequestBody struct {
	BookingID uint    `json:"booking_id" binding:"required"`
	Method    string  `json:"method" binding:"required"`
	Amount    float64 `json:"amount,omitempty"`
	Currency  string  `json:"currency" binding:"required"`
}

type UpdatePaymentStatusRequestBody struct {
	Status string `json:"status" binding:"required,oneof=paid failed"`
	Reason string `json:"reason,omitempty"`
}

type ValidateCouponRequestBody struct {
	Code        string  `json:"code" binding:"required"`
	OrderAmount float64 `json:"order_amount" binding:"required"`
	Route       string  `json:"route,omitempty"`
}

type CreateCouponRequestBody struct {
	Code                  string   `json:"code" binding:"required"`
	DiscountType          string   `json:"discount_type" binding:"required,oneof=percentage fixed_amount"`
	DiscountValue         float64  `json:"discount_value" binding:"required,gt=0"`
	MinimumOrderAmount    float64  `json:"minimum_order_amount,omitempty"`
	MaximumDiscountAmount *float64 `json:"maximum_discount_amount,omitempty"`
	UsageLimit            *uint    `json:"usage_limit,omitempty"`
	UserUsageLimit        uint     `json:"user_usage_limit" binding:"required,gt=0"`
	ValidFrom             string   `json:"valid_from" binding:"required"`
	ValidUntil            string   `json:"valid_until" binding:"required"`
	ApplicableUserTypes   []string `json:"applicable_user_types,omitempty"`
	ApplicableRoutes      []string `json:"applicable_routes,omitempty"`
}

type RailsQueryFilters struct {
	Country  string `form:"country" binding:"required,len=2"`
	Currency string `form:"currency" binding:"required,len=3"`
}
