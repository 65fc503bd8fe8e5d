package models

import "fleetbook/src/types"

type Driver struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	LicenseNo string `json:"license_no,omitempty"`
	CompanyID *uint  `json:"company_id,omitempty"`
	Active    bool   `gorm:"default:true" json:"active"`

	types.Timestamps
}

type Car struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	PlateNumber string `gorm:"uniqueIndex" json:"plate_number,omitempty"`
	VehicleType string `json:"vehicle_type,omitempty"`
	Seats       uint8  `json:"seats,omitempty"`
	CompanyID   *uint  `json:"company_id,omitempty"`
	Active      bool   `gorm:"default:true" json:"active"`

	types.Timestamps
}
