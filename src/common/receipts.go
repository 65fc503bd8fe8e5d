package common

import (
	"fleetbook/src/db"
	"fleetbook/src/lib"
	"fleetbook/src/lib/mailer"
	"fleetbook/src/models"
	"fmt"
	"log"
	"os"

	"github.com/tidwall/gjson"
)

// HandleReceiptMessage mails a settlement receipt to the passenger. Bookings
// without a passenger email are skipped.
func HandleReceiptMessage(body string) {
	if !gjson.Valid(body) {
		log.Printf("[%s] Received invalid json body. Aborting\n", TopicReceipts)
		return
	}
	bookingID := uint(gjson.Get(body, "booking_id").Uint())
	if bookingID == 0 {
		log.Printf("[%s] Message missing booking id: %s\n", TopicReceipts, body)
		return
	}
	if err := SendBookingReceipt(bookingID); err != nil {
		log.Printf("[%s] Error sending receipt for booking %d: %s\n", TopicReceipts, bookingID, err.Error())
	}
}

func ReceiptConsumer() {
	lib.KafkaConsume("receipt-worker", []string{TopicReceipts}, HandleReceiptMessage)
}

func SendBookingReceipt(bookingID uint) error {
	gdb := db.GetDb()
	var booking models.Booking
	if err := gdb.Preload("RouteFare").First(&booking, bookingID).Error; err != nil {
		return err
	}
	if booking.PassengerEmail == "" {
		log.Printf("[Receipts] booking %d has no passenger email, skipping\n", bookingID)
		return nil
	}
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>We received your payment for booking <b>%s</b>.</p>
		<p>%s &rarr; %s on %s</p>
		<p>Total charged: %.2f %s</p>
	`,
		booking.PassengerName,
		booking.BookingReference,
		booking.PickupLocation,
		booking.DropoffLocation,
		booking.PickupTime.Format("2006-01-02 15:04"),
		booking.TotalAmount,
		booking.Currency,
	)
	return mailer.NewMailerMessage(&lib.SendMailInput{
		From:     os.Getenv("SMTP_FROM"),
		FromName: "noreply",
		To:       []string{booking.PassengerEmail},
		Subject:  fmt.Sprintf("Your booking receipt [%s]", booking.BookingReference),
		Body:     body,
		Html:     true,
	})
}
