package models

import "fleetbook/src/types"

// PaymentMethodConfig is the admin-owned display row for one bank-transfer
// rail. The compatibility lookup itself lives in the rail adapter; these rows
// only carry presentation metadata and the enable switch.
type PaymentMethodConfig struct {
	ID                  uint                   `gorm:"primarykey" json:"id"`
	Rail                types.BankTransferType `gorm:"uniqueIndex" json:"rail,omitempty"`
	DisplayName         string                 `json:"display_name,omitempty"`
	Description         string                 `json:"description,omitempty"`
	Enabled             bool                   `gorm:"default:true" json:"enabled"`
	SupportedCountries  types.JSONBArray       `gorm:"type:jsonb" json:"supported_countries,omitempty"`
	SupportedCurrencies types.JSONBArray       `gorm:"type:jsonb" json:"supported_currencies,omitempty"`

	types.Timestamps
}
