package common

import (
	"errors"
	"fleetbook/src/lib"
	"fleetbook/src/models"
	"fleetbook/src/types"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GatewayEvent is the normalized form of one asynchronous gateway delivery,
// correlated to a Payment by the gateway's payment-intent identifier.
type GatewayEvent struct {
	EventID       string
	IntentID      string
	Type          string
	FailureReason string
}

// Delivery is at-least-once and unordered, so the mapping is a lattice:
// PENDING < PAID and PENDING < FAILED, with no edge back down.
func mapGatewayStatus(eventType string) types.PaymentStatus {
	switch eventType {
	case "payment_intent.succeeded":
		return types.PAYMENT_PAID
	case "payment_intent.payment_failed", "payment_intent.canceled":
		return types.PAYMENT_FAILED
	}
	return types.PAYMENT_PENDING
}

// CreatePayment opens a PENDING payment against a booking. Gateway intent
// creation happens afterwards; a gateway failure leaves the row PENDING.
func CreatePayment(db *gorm.DB, bookingID, payerID uint, method string, amount float64, currency string) (*models.Payment, error) {
	var payment models.Payment
	err := db.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.First(&booking, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if amount == 0 {
			amount = booking.TotalAmount
		}
		payment = models.Payment{
			BookingID:     bookingID,
			PayerID:       payerID,
			CompanyID:     booking.CompanyID,
			PaymentMethod: method,
			Amount:        RoundCents(amount),
			Currency:      strings.ToLower(currency),
			PaymentStatus: types.PAYMENT_PENDING,
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// AttachPaymentIntent records the gateway correlation identifiers once the
// intent has been created.
func AttachPaymentIntent(db *gorm.DB, paymentID uuid.UUID, intentID string, customerID *string) error {
	updates := map[string]any{"payment_intent_id": intentID}
	if customerID != nil {
		updates["customer_id"] = *customerID
	}
	return db.Model(&models.Payment{}).Where("id = ?", paymentID).Updates(updates).Error
}

// ApplyGatewayEvent is the idempotent webhook projector. Re-delivered or
// out-of-order events collapse into a single effect: once PAID, nothing
// regresses the payment, and the settlement event fires exactly once.
func ApplyGatewayEvent(db *gorm.DB, evt GatewayEvent) error {
	if evt.IntentID == "" {
		return fmt.Errorf("gateway event %s carries no payment intent id", evt.EventID)
	}
	settled := false
	var payment models.Payment
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("payment_intent_id = ?", evt.IntentID).First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		next := mapGatewayStatus(evt.Type)
		switch payment.PaymentStatus {
		case types.PAYMENT_PAID, types.PAYMENT_REFUNDED:
			if next != types.PAYMENT_PAID {
				log.Printf("[GatewayEvent] %s: ignoring regressive %s for payment %s already %s\n", evt.EventID, evt.Type, payment.ID, payment.PaymentStatus)
			}
			return nil
		}
		// A redelivery carrying the status the payment already holds has
		// nothing left to do; the first delivery's timestamps stand.
		if payment.PaymentStatus == next {
			return nil
		}

		now := time.Now()
		updates := map[string]any{"payment_status": next}
		switch next {
		case types.PAYMENT_PAID:
			updates["paid_at"] = now
			settled = true
		case types.PAYMENT_FAILED:
			updates["failed_at"] = now
			if evt.FailureReason != "" {
				updates["failure_reason"] = evt.FailureReason
			}
		default:
			return nil
		}
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND payment_status = ?", payment.ID, payment.PaymentStatus).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("payment %s changed while projecting event %s", payment.ID, evt.EventID)
		}
		return tx.Model(&models.Booking{}).
			Where("id = ?", payment.BookingID).
			Update("payment_status", next).
			Error
	})
	if err != nil {
		return err
	}
	if settled {
		PublishPaymentSettled(payment.BookingID, payment.ID)
		PublishBookingReceipt(payment.BookingID, payment.ID)
	}
	return nil
}

// UpdatePaymentStatus applies an administrative status decision through the
// same lattice the gateway projector uses: a manual settlement emits the same
// downstream events, a repeat of the current status is a no-op, and nothing
// regresses a PAID or REFUNDED payment. Unlike the projector, a regressive
// request is rejected out loud so the operator sees the conflict.
func UpdatePaymentStatus(db *gorm.DB, paymentID uuid.UUID, status types.PaymentStatus, reason string) (*models.Payment, error) {
	if status != types.PAYMENT_PAID && status != types.PAYMENT_FAILED {
		var current models.Payment
		if err := db.First(&current, "id = ?", paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		return nil, &InvalidTransitionError{Entity: "payment", From: string(current.PaymentStatus), Attempted: string(status)}
	}

	settled := false
	var payment models.Payment
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, "id = ?", paymentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if payment.PaymentStatus == status {
			return nil
		}
		switch payment.PaymentStatus {
		case types.PAYMENT_PAID, types.PAYMENT_REFUNDED:
			return &InvalidTransitionError{Entity: "payment", From: string(payment.PaymentStatus), Attempted: string(status)}
		}

		now := time.Now()
		updates := map[string]any{"payment_status": status}
		if status == types.PAYMENT_PAID {
			updates["paid_at"] = now
			settled = true
		} else {
			updates["failed_at"] = now
			if reason != "" {
				updates["failure_reason"] = reason
			}
		}
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND payment_status = ?", payment.ID, payment.PaymentStatus).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &InvalidTransitionError{Entity: "payment", From: string(payment.PaymentStatus), Attempted: string(status)}
		}
		if err := tx.Model(&models.Booking{}).
			Where("id = ?", payment.BookingID).
			Update("payment_status", status).
			Error; err != nil {
			return err
		}
		return tx.First(&payment, "id = ?", paymentID).Error
	})
	if err != nil {
		return nil, err
	}
	if settled {
		PublishPaymentSettled(payment.BookingID, payment.ID)
		PublishBookingReceipt(payment.BookingID, payment.ID)
	}
	return &payment, nil
}

// RefundPayment flips a PAID payment to REFUNDED. The gateway refund has to
// go through first; a payment without an intent id never reached the gateway
// and is recorded as a manual refund.
func RefundPayment(db *gorm.DB, paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := db.First(&payment, "id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if payment.PaymentStatus != types.PAYMENT_PAID {
		return nil, &InvalidTransitionError{Entity: "payment", From: string(payment.PaymentStatus), Attempted: "refund"}
	}
	if payment.PaymentIntentID != nil {
		if _, err := lib.CreateStripeRefund(*payment.PaymentIntentID); err != nil {
			log.Printf("[Refund] gateway refund for payment %s failed: %s\n", payment.ID, err.Error())
			return nil, fmt.Errorf("%w: %s", ErrGateway, err.Error())
		}
	} else {
		log.Printf("[Refund] payment %s has no gateway intent; recording manual refund\n", payment.ID)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND payment_status = ?", payment.ID, types.PAYMENT_PAID).
			Updates(map[string]any{
				"payment_status": types.PAYMENT_REFUNDED,
				"refunded_at":    time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &InvalidTransitionError{Entity: "payment", From: string(types.PAYMENT_PAID), Attempted: "refund"}
		}
		return tx.Model(&models.Booking{}).
			Where("id = ?", payment.BookingID).
			Update("payment_status", types.PAYMENT_REFUNDED).
			Error
	})
	if err != nil {
		return nil, err
	}
	if err := db.First(&payment, "id = ?", paymentID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ExpireStalePayments fails PENDING payments that never saw a gateway event
// within the window. FAILED is a lattice edge from PENDING, so late webhook
// deliveries for an expired intent are ignored by the projector only if the
// payment already settled; a late success still wins over an expiry.
func ExpireStalePayments(db *gorm.DB, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	res := db.Model(&models.Payment{}).
		Where("payment_status = ? AND created_at < ?", types.PAYMENT_PENDING, cutoff).
		Updates(map[string]any{
			"payment_status": types.PAYMENT_FAILED,
			"failed_at":      time.Now(),
			"failure_reason": "payment window expired",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("[PaymentExpiry] expired %d stale pending payments\n", res.RowsAffected)
	}
	return nil
}
