package lib

import (
	"context"
	"math"
	"os"

	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

// NewStripeClient Replace stripe instance with custom client implementation
func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

// CreateStripePaymentIntent opens a gateway intent. methodTypes carries the
// gateway-native identifiers the rail adapter resolved for the chosen rail.
func CreateStripePaymentIntent(amount float64, currency string, methodTypes []string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	sc := GetStripeClient()
	params := stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(int64(math.Round(amount * 100))),
		Currency: stripe.String(currency),
	}
	if len(methodTypes) > 0 {
		params.PaymentMethodTypes = stripe.StringSlice(methodTypes)
	} else {
		params.AutomaticPaymentMethods = &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		}
	}
	if len(metadata) > 0 {
		params.Metadata = metadata
	}
	return sc.V1PaymentIntents.Create(context.Background(), &params)
}

func CreateStripeRefund(paymentIntentID string) (*stripe.Refund, error) {
	sc := GetStripeClient()
	params := stripe.RefundCreateParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	return sc.V1Refunds.Create(context.Background(), &params)
}
