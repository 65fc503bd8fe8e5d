package utils

import (
	"crypto/rand"
	"errors"
	"fleetbook/src/common"
	"fleetbook/src/config"
	"fleetbook/src/db"
	"fleetbook/src/lib"
	"fleetbook/src/models"
	"fleetbook/src/types"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
)

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateBookingReference returns a short human-readable reference like
// FB-7KQ2M9XADC. The alphabet skips 0/O/1/I.
func GenerateBookingReference() string {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("FB-%d", time.Now().UnixNano())
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return fmt.Sprintf("FB-%s", string(buf))
}

// CreateBooking resolves the fare, prices the trip and creates the booking.
// Coupon redemption happens inside the same transaction as the insert, so a
// booking row and its ledger row either both exist or neither does.
func CreateBooking(params *types.CreateBookingRequestBody, userID uint) (*models.Booking, error) {
	pickupTime, err := time.Parse(config.TIME_PARSE_FORMAT, params.PickupTime)
	if err != nil {
		log.Printf("Error parsing pickup_time: %s\n", err.Error())
		return nil, err
	}

	gdb := db.GetDb()
	var booking models.Booking
	err = gdb.Transaction(func(tx *gorm.DB) error {
		var fare models.RouteFare
		if err := tx.First(&fare, params.RouteFareID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrNotFound
			}
			return err
		}
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrNotFound
			}
			return err
		}

		fareType := types.FareType(params.FareType)
		if fareType == "" {
			fareType = types.FARE_SALE
		}
		base := fare.AmountFor(fareType)

		var coupon *models.Coupon
		var discount float64
		if params.CouponCode != "" {
			check, err := common.ValidateCoupon(tx, params.CouponCode, userID, base, user.Role, fare.RouteCode)
			if err != nil {
				return err
			}
			if !check.Valid {
				return fmt.Errorf("%w: %s", common.ErrCouponInvalid, check.Reason)
			}
			coupon = check.Coupon
			discount = check.DiscountAmount
		}
		quote := common.ComputeQuote(base, discount, fare.TaxRate)

		currency := params.Currency
		if currency == "" {
			currency = fare.Currency
		}
		passengerCount := params.PassengerCount
		if passengerCount == 0 {
			passengerCount = 1
		}
		booking = models.Booking{
			BookingReference: GenerateBookingReference(),
			UserID:           userID,
			CompanyID:        params.CompanyID,
			RouteFareID:      fare.ID,
			PassengerName:    params.PassengerName,
			PassengerPhone:   params.PassengerPhone,
			PassengerEmail:   params.PassengerEmail,
			PassengerCount:   passengerCount,
			FareType:         fareType,
			PickupTime:       pickupTime,
			PickupLocation:   params.PickupLocation,
			DropoffLocation:  params.DropoffLocation,
			BaseAmount:       quote.BaseAmount,
			DiscountAmount:   quote.DiscountAmount,
			TaxAmount:        quote.TaxAmount,
			TotalAmount:      quote.TotalAmount,
			Currency:         strings.ToLower(currency),
			BookingStatus:    types.BOOKING_PENDING,
			PaymentStatus:    types.PAYMENT_PENDING,
		}
		if booking.CompanyID == nil {
			booking.CompanyID = user.CompanyID
		}
		if coupon != nil {
			booking.CouponID = &coupon.ID
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		if coupon != nil {
			if err := common.RedeemCoupon(tx, coupon, userID, booking.ID, quote.DiscountAmount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// CreatePaymentWithIntent opens a payment and asks the gateway for an intent.
// The payment row is committed before the gateway call: if the gateway is
// down the row stays PENDING without an intent id and the caller gets
// ErrGateway.
func CreatePaymentWithIntent(params *types.CreatePaymentRequestBody, payerID uint) (*models.Payment, error) {
	gdb := db.GetDb()
	payment, err := common.CreatePayment(gdb, params.BookingID, payerID, params.Method, params.Amount, params.Currency)
	if err != nil {
		return nil, err
	}

	var methodTypes []string
	if params.Method != types.PAYMENT_METHOD_CARD {
		methodTypes, err = common.ToGatewayMethodTypes(types.BankTransferType(params.Method))
		if err != nil {
			return payment, err
		}
	}
	intent, err := lib.CreateStripePaymentIntent(payment.Amount, payment.Currency, methodTypes, map[string]string{
		"booking_id": fmt.Sprint(params.BookingID),
		"payment_id": payment.ID.String(),
	})
	if err != nil {
		log.Printf("[Payment] gateway intent for payment %s failed: %s\n", payment.ID, err.Error())
		return payment, fmt.Errorf("%w: %s", common.ErrGateway, err.Error())
	}
	if err := common.AttachPaymentIntent(gdb, payment.ID, intent.ID, nil); err != nil {
		return payment, err
	}
	payment.PaymentIntentID = &intent.ID
	return payment, nil
}
