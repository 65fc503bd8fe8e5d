package models

import "fleetbook/src/types"

// RouteFare is one precomputed rate row of the route/fare catalog. The
// catalog itself is maintained elsewhere; bookings only resolve against it.
type RouteFare struct {
	ID                   uint    `gorm:"primarykey" json:"id"`
	RouteCode            string  `gorm:"index" json:"route_code,omitempty"`
	VehicleType          string  `json:"vehicle_type,omitempty"`
	DistanceKM           float64 `json:"distance_km,omitempty"`
	EstimatedDurationMin uint    `json:"estimated_duration_min,omitempty"`
	SaleAmount           float64 `json:"sale_amount,omitempty"`
	BusinessAmount       float64 `json:"business_amount,omitempty"`
	TaxRate              float64 `json:"tax_rate,omitempty"`
	Currency             string  `gorm:"default:'eur'" json:"currency,omitempty"`

	types.Timestamps
}

// AmountFor picks the rate tier for the requested fare type.
func (f *RouteFare) AmountFor(t types.FareType) float64 {
	if t == types.FARE_BUSINESS {
		return f.BusinessAmount
	}
	return f.SaleAmount
}
