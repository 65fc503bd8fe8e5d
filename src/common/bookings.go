package common

import (
	"errors"
	"fleetbook/src/models"
	"fleetbook/src/types"
	"log"
	"time"

	"gorm.io/gorm"
)

type bookingOp string

const (
	opConfirm     bookingOp = "confirm"
	opOpenAuction bookingOp = "open_for_auction"
	opAward       bookingOp = "award"
	opAssign      bookingOp = "assign"
	opStartTrip   bookingOp = "start_trip"
	opComplete    bookingOp = "complete_trip"
	opCancel      bookingOp = "cancel"
)

// Closed transition table. Any operation invoked from a state not listed for
// it is rejected before touching the row.
var bookingTransitions = map[bookingOp]struct {
	from []types.BookingStatus
	to   types.BookingStatus
}{
	opConfirm:     {from: []types.BookingStatus{types.BOOKING_PENDING}, to: types.BOOKING_CONFIRMED},
	opOpenAuction: {from: []types.BookingStatus{types.BOOKING_CONFIRMED}, to: types.BOOKING_IN_AUCTION},
	opAward:       {from: []types.BookingStatus{types.BOOKING_IN_AUCTION}, to: types.BOOKING_AUCTION_AWARDED},
	opAssign:      {from: []types.BookingStatus{types.BOOKING_CONFIRMED, types.BOOKING_AUCTION_AWARDED}, to: types.BOOKING_ASSIGNED},
	opStartTrip:   {from: []types.BookingStatus{types.BOOKING_ASSIGNED}, to: types.BOOKING_IN_PROGRESS},
	opComplete:    {from: []types.BookingStatus{types.BOOKING_IN_PROGRESS}, to: types.BOOKING_COMPLETED},
	opCancel: {from: []types.BookingStatus{
		types.BOOKING_PENDING,
		types.BOOKING_CONFIRMED,
		types.BOOKING_ASSIGNED,
		types.BOOKING_IN_AUCTION,
		types.BOOKING_AUCTION_AWARDED,
		types.BOOKING_IN_PROGRESS,
	}, to: types.BOOKING_CANCELLED},
}

func statusIn(s types.BookingStatus, set []types.BookingStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// applyTransition runs one guarded state-machine move as an atomic
// check-and-set on the booking row. A transition computed against a stale
// status loses the CAS and fails without mutating anything.
func applyTransition(db *gorm.DB, id uint, op bookingOp, extra map[string]any) (*models.Booking, error) {
	spec, ok := bookingTransitions[op]
	if !ok {
		return nil, errors.New("unknown booking operation")
	}
	var booking models.Booking
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !statusIn(booking.BookingStatus, spec.from) {
			return &InvalidTransitionError{Entity: "booking", From: string(booking.BookingStatus), Attempted: string(op)}
		}
		updates := map[string]any{"booking_status": spec.to}
		for k, v := range extra {
			updates[k] = v
		}
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND booking_status = ?", id, booking.BookingStatus).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &InvalidTransitionError{Entity: "booking", From: string(booking.BookingStatus), Attempted: string(op)}
		}
		return tx.First(&booking, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func ConfirmBooking(db *gorm.DB, id uint) (*models.Booking, error) {
	return applyTransition(db, id, opConfirm, nil)
}

// OpenForAuction hands the booking to the external auction collaborator.
// Everything past this boundary transition belongs to that subsystem.
func OpenForAuction(db *gorm.DB, id uint) (*models.Booking, error) {
	return applyTransition(db, id, opOpenAuction, nil)
}

func AwardAuction(db *gorm.DB, id, driverID, carID uint) (*models.Booking, error) {
	var booking *models.Booking
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := checkFleetActive(tx, driverID, carID); err != nil {
			return err
		}
		var err error
		booking, err = applyTransition(tx, id, opAward, map[string]any{
			"assigned_driver_id": driverID,
			"assigned_car_id":    carID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// AssignDriverAndCar moves a confirmed or auction-awarded booking to ASSIGNED
// after checking the fleet registry and the double-booking guard: neither the
// driver nor the car may hold another active assignment whose pickup window
// overlaps this booking's.
func AssignDriverAndCar(db *gorm.DB, id, driverID, carID uint) (*models.Booking, error) {
	var booking *models.Booking
	err := db.Transaction(func(tx *gorm.DB) error {
		var current models.Booking
		if err := tx.Preload("RouteFare").First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !statusIn(current.BookingStatus, bookingTransitions[opAssign].from) {
			return &InvalidTransitionError{Entity: "booking", From: string(current.BookingStatus), Attempted: string(opAssign)}
		}
		if err := checkFleetActive(tx, driverID, carID); err != nil {
			return err
		}
		if err := checkAssignmentConflict(tx, &current, driverID, carID); err != nil {
			return err
		}
		var err error
		booking, err = applyTransition(tx, id, opAssign, map[string]any{
			"assigned_driver_id": driverID,
			"assigned_car_id":    carID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func StartTrip(db *gorm.DB, id uint) (*models.Booking, error) {
	var booking *models.Booking
	err := db.Transaction(func(tx *gorm.DB) error {
		var current models.Booking
		if err := tx.First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		// Both assignment fields are required in ASSIGNED; a row violating
		// that never gets to drive.
		if current.AssignedDriverID == nil || current.AssignedCarID == nil {
			return &InvalidTransitionError{Entity: "booking", From: string(current.BookingStatus), Attempted: string(opStartTrip)}
		}
		var err error
		booking, err = applyTransition(tx, id, opStartTrip, map[string]any{
			"actual_pickup_time": time.Now(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func CompleteTrip(db *gorm.DB, id uint, actualDistanceKM *float64) (*models.Booking, error) {
	extra := map[string]any{"actual_dropoff_time": time.Now()}
	if actualDistanceKM != nil {
		extra["actual_distance_km"] = *actualDistanceKM
	}
	return applyTransition(db, id, opComplete, extra)
}

// CancelBooking is valid from any non-terminal state. Cancelling a paid
// booking emits a refund-review signal; the refund decision itself stays
// manual.
func CancelBooking(db *gorm.DB, id uint, reason string) (*models.Booking, error) {
	booking, err := applyTransition(db, id, opCancel, map[string]any{"cancel_reason": reason})
	if err != nil {
		return nil, err
	}
	if booking.PaymentStatus == types.PAYMENT_PAID {
		var payment models.Payment
		err := db.
			Where("booking_id = ? AND payment_status = ?", booking.ID, types.PAYMENT_PAID).
			Order("paid_at DESC").
			First(&payment).
			Error
		if err != nil {
			log.Printf("[Cancel] booking %d is paid but no paid payment row was found: %s\n", booking.ID, err.Error())
		} else {
			log.Printf("[Cancel] booking %d cancelled while paid; flagging payment %s for refund review\n", booking.ID, payment.ID)
			PublishRefundReview(booking.ID, payment.ID)
		}
	}
	return booking, nil
}

func checkFleetActive(tx *gorm.DB, driverID, carID uint) error {
	var driver models.Driver
	if err := tx.Where("id = ? AND active = ?", driverID, true).First(&driver).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	var car models.Car
	if err := tx.Where("id = ? AND active = ?", carID, true).First(&car).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func checkAssignmentConflict(tx *gorm.DB, booking *models.Booking, driverID, carID uint) error {
	start, end := pickupWindow(booking)
	var others []models.Booking
	err := tx.Preload("RouteFare").
		Where("id <> ?", booking.ID).
		Where("booking_status IN ?", []types.BookingStatus{
			types.BOOKING_ASSIGNED,
			types.BOOKING_IN_PROGRESS,
			types.BOOKING_AUCTION_AWARDED,
		}).
		Where("assigned_driver_id = ? OR assigned_car_id = ?", driverID, carID).
		Find(&others).
		Error
	if err != nil {
		return err
	}
	for _, other := range others {
		otherStart, otherEnd := pickupWindow(&other)
		if start.Before(otherEnd) && otherStart.Before(end) {
			return &AssignmentConflictError{DriverID: driverID, CarID: carID, BookingID: other.ID}
		}
	}
	return nil
}

// pickupWindow is the interval the assignment occupies the driver and car,
// estimated from the catalog route duration.
func pickupWindow(booking *models.Booking) (time.Time, time.Time) {
	durationMin := uint(60)
	if booking.RouteFare != nil && booking.RouteFare.EstimatedDurationMin > 0 {
		durationMin = booking.RouteFare.EstimatedDurationMin
	}
	return booking.PickupTime, booking.PickupTime.Add(time.Duration(durationMin) * time.Minute)
}
