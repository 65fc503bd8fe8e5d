package common

import (
	"encoding/json"
	"fleetbook/src/config"
	"fleetbook/src/lib"
	"fleetbook/src/types"
	"log"

	"github.com/google/uuid"
)

const (
	TopicPaymentSettled = "payments-settled"
	TopicRefundReview   = "payments-refund-review"
	TopicReceipts       = "booking-receipts"
)

// publish sends a domain event on the environment's transport: SQS in
// test/production, Kafka locally (same switch the webhook path has always
// used). Failures are logged; every consumer is idempotent, so a dropped
// event is recovered by the next reconciliation pass, not by blocking the
// caller.
func publish(clientID, topic string, payload types.JSONB) {
	env := config.API_ENV
	if env == string(types.Test) || env == string(types.Production) {
		body, err := json.Marshal(&payload)
		if err != nil {
			log.Printf("[%s] Error serializing payload: %s\n", topic, err.Error())
			return
		}
		if err := lib.SQSProduceMessage(topic, string(body)); err != nil {
			log.Printf("[%s] Error sending message to queue: %s\n", topic, err.Error())
		}
		return
	}
	if err := lib.KafkaProduceMessage(clientID, topic, &payload); err != nil {
		log.Printf("[%s] Error sending message to queue: %s\n", topic, err.Error())
	}
}

// PublishPaymentSettled announces one PENDING→PAID settlement. The event key
// (booking_id, payment_id) makes downstream consumption idempotent.
func PublishPaymentSettled(bookingID uint, paymentID uuid.UUID) {
	publish("PaymentSettledProducer", TopicPaymentSettled, types.JSONB{
		"booking_id": bookingID,
		"payment_id": paymentID.String(),
	})
}

// PublishRefundReview flags a paid payment whose booking was cancelled. The
// refund itself stays a manual administrative decision.
func PublishRefundReview(bookingID uint, paymentID uuid.UUID) {
	publish("RefundReviewProducer", TopicRefundReview, types.JSONB{
		"booking_id": bookingID,
		"payment_id": paymentID.String(),
	})
}

// PublishBookingReceipt asks the receipt worker to mail the passenger.
func PublishBookingReceipt(bookingID uint, paymentID uuid.UUID) {
	publish("ReceiptsProducer", TopicReceipts, types.JSONB{
		"booking_id": bookingID,
		"payment_id": paymentID.String(),
	})
}
