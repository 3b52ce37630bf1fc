package billing

import (
	"context"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	stripesession "github.com/stripe/stripe-go/v82/checkout/session"
	stripesub "github.com/stripe/stripe-go/v82/subscription"
)

// CheckoutParams carries what the hosted-checkout session needs. Metadata
// lets the webhook map the completed session back to the account and plan.
type CheckoutParams struct {
	PriceID       string
	CustomerEmail string
	AccountID     string
	PlanCode      string
	Family        string
}

// Gateway is the payment-processor surface used by the upgrade flow.
type Gateway interface {
	// SubscriptionStatus queries the live status of a processor subscription.
	SubscriptionStatus(ctx context.Context, subscriptionID string) (string, error)

	// SwapPrice replaces the subscription's single line-item price and has
	// the processor invoice the prorated difference immediately.
	SwapPrice(ctx context.Context, subscriptionID, priceID string) error

	// NewCheckoutSession creates a hosted checkout session and returns its URL.
	NewCheckoutSession(ctx context.Context, p CheckoutParams) (string, error)
}

// StripeGateway implements Gateway against the Stripe API. The call sites
// are function fields so tests can swap them out.
type StripeGateway struct {
	successURL string
	cancelURL  string

	getSubscription    func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	updateSubscription func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	newCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

func NewStripeGateway(apiKey, successURL, cancelURL string) *StripeGateway {
	stripe.Key = strings.TrimSpace(apiKey)
	return &StripeGateway{
		successURL:         successURL,
		cancelURL:          cancelURL,
		getSubscription:    stripesub.Get,
		updateSubscription: stripesub.Update,
		newCheckoutSession: stripesession.New,
	}
}

func (g *StripeGateway) SubscriptionStatus(ctx context.Context, subscriptionID string) (string, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := g.getSubscription(subscriptionID, params)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve subscription: %w", err)
	}
	return string(sub.Status), nil
}

func (g *StripeGateway) SwapPrice(ctx context.Context, subscriptionID, priceID string) error {
	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	sub, err := g.getSubscription(subscriptionID, getParams)
	if err != nil {
		return fmt.Errorf("failed to retrieve subscription: %w", err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return fmt.Errorf("subscription %s has no line items", subscriptionID)
	}

	// Proration is computed by Stripe; always_invoice charges the prorated
	// difference for the remainder of the period immediately.
	updateParams := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(sub.Items.Data[0].ID),
				Price: stripe.String(priceID),
			},
		},
		ProrationBehavior: stripe.String("always_invoice"),
	}
	updateParams.Context = ctx

	if _, err := g.updateSubscription(subscriptionID, updateParams); err != nil {
		return err
	}
	return nil
}

func (g *StripeGateway) NewCheckoutSession(ctx context.Context, p CheckoutParams) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		CustomerEmail:     stripe.String(p.CustomerEmail),
		ClientReferenceID: stripe.String(p.AccountID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"account_id": p.AccountID,
			"plan_code":  p.PlanCode,
			"family":     p.Family,
		},
	}
	params.Context = ctx

	session, err := g.newCheckoutSession(params)
	if err != nil {
		return "", err
	}
	if session == nil || strings.TrimSpace(session.URL) == "" {
		return "", fmt.Errorf("stripe returned empty checkout URL")
	}
	return strings.TrimSpace(session.URL), nil
}
