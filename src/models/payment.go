package models

import (
	"fleetbook/src/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Payment struct {
	ID        uuid.UUID `gorm:"primarykey;type:uuid" json:"id"`
	BookingID uint      `json:"booking_id,omitempty"`
	PayerID   uint      `json:"payer_id,omitempty"`
	CompanyID *uint     `json:"company_id,omitempty"`

	PaymentMethod string  `json:"payment_method,omitempty"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency,omitempty"`

	PaymentIntentID   *string `gorm:"uniqueIndex" json:"payment_intent_id,omitempty"`
	CustomerID        *string `json:"customer_id,omitempty"`
	CheckoutSessionID *string `json:"checkout_session_id,omitempty"`

	PaymentStatus types.PaymentStatus `gorm:"default:'pending'" json:"payment_status,omitempty"`
	FailureReason *string             `json:"failure_reason,omitempty"`

	PaidAt     *time.Time `json:"paid_at,omitempty"`
	FailedAt   *time.Time `json:"failed_at,omitempty"`
	RefundedAt *time.Time `json:"refunded_at,omitempty"`

	Booking Booking `gorm:"foreignKey:booking_id" json:"-"`

	types.Timestamps
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
