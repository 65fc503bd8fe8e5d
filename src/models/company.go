package models

import "fleetbook/src/types"

// Company is a B2B fleet partner. Commission rates are maintained here by
// partner administration; the settlement engine only reads them.
type Company struct {
	ID              uint    `gorm:"primarykey" json:"id"`
	Name            string  `json:"name,omitempty"`
	Country         string  `json:"country,omitempty"`
	ContactEmail    string  `json:"email,omitempty"`
	CommissionRate  float64 `json:"commission_rate"`
	StripeAccountID *string `json:"stripe_account_id,omitempty"`
	Status          string  `gorm:"default:'active'" json:"status,omitempty"`

	Bookings []Booking `gorm:"foreignKey:company_id" json:"-"`

	types.Timestamps
}
