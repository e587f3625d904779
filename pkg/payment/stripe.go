package payment

import (
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"github.com/stripe/stripe-go/v74/customer"
	sub "github.com/stripe/stripe-go/v74/subscription"
)

type StripeService struct {
	secretKey string
}

func NewStripeService(secretKey string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{
		secretKey: secretKey,
	}
}

func (s *StripeService) CreateCustomer(email, fullName string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(fullName),
	}
	return customer.New(params)
}

// CreateCheckoutSession opens a hosted payment-mode session. The metadata
// map must carry user_id and the serialized cart_items snapshot; the
// webhook processor has no other source for what was bought.
func (s *StripeService) CreateCheckoutSession(
	customerID string,
	lineItems []*stripe.CheckoutSessionLineItemParams,
	successURL, cancelURL string,
	metadata map[string]string,
) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}

	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	return session.New(params)
}

// GetLatestSubscription returns the customer's most recent subscription in
// any status, or nil when the customer never subscribed.
func (s *StripeService) GetLatestSubscription(customerID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Limit = stripe.Int64(1)
	params.AddExpand("data.default_payment_method")

	iter := sub.List(params)
	for iter.Next() {
		current := iter.Subscription()
		return current, nil
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}
