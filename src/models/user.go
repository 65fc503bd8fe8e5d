package models

import "fleetbook/src/types"

type User struct {
	ID               uint    `gorm:"primarykey" json:"id"`
	Name             string  `json:"name,omitempty"`
	Email            string  `json:"email,omitempty"`
	Role             string  `gorm:"default:'customer'" json:"role,omitempty"`
	CompanyID        *uint   `json:"company_id,omitempty"`
	StripeCustomerID *string `json:"-"`

	Bookings []Booking `gorm:"foreignKey:user_id" json:"bookings,omitempty"`

	types.Timestamps
}
