package common

import (
	"errors"
	"fleetbook/src/db"
	"fleetbook/src/lib"
	"fleetbook/src/models"
	"fleetbook/src/types"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// SettleCommission derives a partner commission from one settled payment.
// Idempotent per (booking, payment): re-evaluating an already settled payment
// returns the existing row. Bookings without a partner attribution produce
// nothing.
func SettleCommission(gdb *gorm.DB, bookingID uint, paymentID uuid.UUID) (*models.Commission, error) {
	var commission *models.Commission
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.First(&booking, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if booking.CompanyID == nil {
			return nil
		}

		var existing models.Commission
		err := tx.Where("booking_id = ? AND payment_id = ?", bookingID, paymentID).First(&existing).Error
		if err == nil {
			commission = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var company models.Company
		if err := tx.First(&company, *booking.CompanyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		row := models.Commission{
			CompanyID:        company.ID,
			BookingID:        bookingID,
			PaymentID:        paymentID,
			BookingAmount:    booking.TotalAmount,
			CommissionRate:   company.CommissionRate,
			CommissionAmount: RoundCents(booking.TotalAmount * company.CommissionRate),
			Status:           types.COMMISSION_PENDING,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		log.Printf("[Commission] created commission %d for company %d: booking=%d amount=%.2f\n", row.ID, company.ID, bookingID, row.CommissionAmount)
		commission = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return commission, nil
}

// transitionCommission is the commission counterpart of the booking CAS:
// duplicate admin actions lose the guarded update instead of re-stamping
// timestamps.
func transitionCommission(gdb *gorm.DB, id uint, attempted string, from []types.CommissionStatus, to types.CommissionStatus, stamp string) (*models.Commission, error) {
	var commission models.Commission
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&commission, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		allowed := false
		for _, s := range from {
			if commission.Status == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return &InvalidTransitionError{Entity: "commission", From: string(commission.Status), Attempted: attempted}
		}
		updates := map[string]any{"status": to}
		if stamp != "" {
			updates[stamp] = time.Now()
		}
		res := tx.Model(&models.Commission{}).
			Where("id = ? AND status = ?", id, commission.Status).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &InvalidTransitionError{Entity: "commission", From: string(commission.Status), Attempted: attempted}
		}
		return tx.First(&commission, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

func ApproveCommission(gdb *gorm.DB, id uint) (*models.Commission, error) {
	return transitionCommission(gdb, id, "approve",
		[]types.CommissionStatus{types.COMMISSION_PENDING},
		types.COMMISSION_APPROVED, "approved_at")
}

func PayCommission(gdb *gorm.DB, id uint) (*models.Commission, error) {
	return transitionCommission(gdb, id, "pay",
		[]types.CommissionStatus{types.COMMISSION_APPROVED},
		types.COMMISSION_PAID, "paid_at")
}

func RejectCommission(gdb *gorm.DB, id uint) (*models.Commission, error) {
	return transitionCommission(gdb, id, "reject",
		[]types.CommissionStatus{types.COMMISSION_PENDING, types.COMMISSION_APPROVED},
		types.COMMISSION_REJECTED, "")
}

// HandlePaymentSettledMessage feeds one settlement event into the commission
// engine. Redelivery is harmless: SettleCommission is idempotent per event key.
func HandlePaymentSettledMessage(body string) {
	if !gjson.Valid(body) {
		log.Printf("[%s] Received invalid json body. Aborting\n", TopicPaymentSettled)
		return
	}
	bookingID := uint(gjson.Get(body, "booking_id").Uint())
	paymentID, err := uuid.Parse(gjson.Get(body, "payment_id").String())
	if err != nil || bookingID == 0 {
		log.Printf("[%s] Message missing settlement key: %s\n", TopicPaymentSettled, body)
		return
	}
	if _, err := SettleCommission(db.GetDb(), bookingID, paymentID); err != nil {
		log.Printf("[%s] Error settling commission for booking %d: %s\n", TopicPaymentSettled, bookingID, err.Error())
	}
}

func PaymentSettledConsumer() {
	lib.KafkaConsume("commission-engine", []string{TopicPaymentSettled}, HandlePaymentSettledMessage)
}
