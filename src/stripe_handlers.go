package main

import (
	"context"
	"encoding/json"
	"errors"
	"fleetbook/src/common"
	"fleetbook/src/db"
	"fleetbook/src/lib"
	"fleetbook/src/models"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

func stripeWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/stripe", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		whsecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), whsecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		log.Printf("[StripeEvent] %s %s\n", event.ID, event.Type)
		if lib.GatewayEventSeen(context.Background(), event.ID) {
			log.Printf("[StripeEvent] %s already processed\n", event.ID)
			ctx.Status(http.StatusOK)
			return
		}
		switch event.Type {
		case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
			var pi stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
				log.Printf("[Stripe] Error parsing PaymentIntent: %s\n", err.Error())
				break
			}
			evt := common.GatewayEvent{
				EventID:  event.ID,
				IntentID: pi.ID,
				Type:     string(event.Type),
			}
			if pi.LastPaymentError != nil {
				evt.FailureReason = pi.LastPaymentError.Msg
			}
			if err := common.ApplyGatewayEvent(db.GetDb(), evt); err != nil {
				// An intent this service never issued is acknowledged and
				// dropped; retrying the delivery would change nothing.
				if errors.Is(err, common.ErrNotFound) {
					log.Printf("[Stripe] No payment for intent %s, ignoring event %s\n", pi.ID, event.ID)
					break
				}
				log.Printf("[Stripe] Error projecting event %s: %s\n", event.ID, err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
		case "payment_intent.created":
			log.Printf("[Stripe] intent created: %s\n", event.ID)
		case "checkout.session.completed":
			var cs stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
				log.Printf("[Stripe] Error parsing CheckoutSession: %s\n", err.Error())
				break
			}
			if cs.PaymentIntent == nil {
				break
			}
			gdb := db.GetDb()
			if err := gdb.Model(&models.Payment{}).
				Where("payment_intent_id = ?", cs.PaymentIntent.ID).
				Update("checkout_session_id", cs.ID).
				Error; err != nil {
				log.Printf("[Stripe] Error attaching checkout session %s: %s\n", cs.ID, err.Error())
			}
		default:
			log.Printf("[Stripe] Unhandled event type: %s\n", event.Type)
		}
		// The event id is only recorded once the delivery was handled end to
		// end; a 500 above leaves no claim, so the gateway's retry runs the
		// idempotent projector again instead of being dropped.
		lib.MarkGatewayEventSeen(context.Background(), event.ID)
		ctx.Status(http.StatusOK)
	})
	return apiv1
}
