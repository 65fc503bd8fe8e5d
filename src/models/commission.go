package models

import (
	"fleetbook/src/types"
	"time"

	"github.com/google/uuid"
)

type Commission struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CompanyID uint      `json:"company_id,omitempty"`
	BookingID uint      `gorm:"uniqueIndex:idx_commission_settlement" json:"booking_id,omitempty"`
	PaymentID uuid.UUID `gorm:"uniqueIndex:idx_commission_settlement;type:uuid" json:"payment_id,omitempty"`

	BookingAmount    float64 `json:"booking_amount"`
	CommissionRate   float64 `json:"commission_rate"`
	CommissionAmount float64 `json:"commission_amount"`

	Status     types.CommissionStatus `gorm:"default:'pending'" json:"status,omitempty"`
	ApprovedAt *time.Time             `json:"approved_at,omitempty"`
	PaidAt     *time.Time             `json:"paid_at,omitempty"`

	Company Company `gorm:"foreignKey:company_id" json:"-"`
	Booking Booking `gorm:"foreignKey:booking_id" json:"-"`
	Payment Payment `gorm:"foreignKey:payment_id" json:"-"`

	types.Timestamps
}
