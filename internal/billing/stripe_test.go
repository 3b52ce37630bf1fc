package billing

import (
	"context"
	"errors"
	"testing"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapPriceUsesFirstItemAndAlwaysInvoices(t *testing.T) {
	var updated *stripe.SubscriptionParams

	g := &StripeGateway{
		getSubscription: func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
			assert.Equal(t, "sub_123", id)
			return &stripe.Subscription{
				Items: &stripe.SubscriptionItemList{
					Data: []*stripe.SubscriptionItem{{ID: "si_abc"}, {ID: "si_extra"}},
				},
			}, nil
		},
		updateSubscription: func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
			updated = params
			return &stripe.Subscription{}, nil
		},
	}

	err := g.SwapPrice(context.Background(), "sub_123", "price_agency")
	require.NoError(t, err)

	require.NotNil(t, updated)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "si_abc", *updated.Items[0].ID)
	assert.Equal(t, "price_agency", *updated.Items[0].Price)
	require.NotNil(t, updated.ProrationBehavior)
	assert.Equal(t, "always_invoice", *updated.ProrationBehavior)
}

func TestSwapPriceFailsWithoutLineItems(t *testing.T) {
	g := &StripeGateway{
		getSubscription: func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
			return &stripe.Subscription{Items: &stripe.SubscriptionItemList{}}, nil
		},
	}

	err := g.SwapPrice(context.Background(), "sub_123", "price_pro")
	assert.Error(t, err)
}

func TestSwapPricePropagatesUpdateError(t *testing.T) {
	updateErr := errors.New("card declined")
	g := &StripeGateway{
		getSubscription: func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
			return &stripe.Subscription{
				Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{{ID: "si_abc"}}},
			}, nil
		},
		updateSubscription: func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
			return nil, updateErr
		},
	}

	err := g.SwapPrice(context.Background(), "sub_123", "price_pro")
	assert.ErrorIs(t, err, updateErr)
}

func TestSubscriptionStatus(t *testing.T) {
	g := &StripeGateway{
		getSubscription: func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
			return &stripe.Subscription{Status: stripe.SubscriptionStatusActive}, nil
		},
	}

	status, err := g.SubscriptionStatus(context.Background(), "sub_123")
	require.NoError(t, err)
	assert.Equal(t, "active", status)
}

func TestNewCheckoutSessionCarriesAccountMetadata(t *testing.T) {
	var created *stripe.CheckoutSessionParams

	g := &StripeGateway{
		successURL: "https://app.example.com/success",
		cancelURL:  "https://app.example.com/cancel",
		newCheckoutSession: func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			created = params
			return &stripe.CheckoutSession{URL: "https://checkout.stripe.com/c/pay/test"}, nil
		},
	}

	url, err := g.NewCheckoutSession(context.Background(), CheckoutParams{
		PriceID:       "price_pro",
		CustomerEmail: "owner@example.com",
		AccountID:     "acct-uuid",
		PlanCode:      "pro",
		Family:        "affiliate",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/test", url)

	require.NotNil(t, created)
	assert.Equal(t, "subscription", *created.Mode)
	assert.Equal(t, "acct-uuid", *created.ClientReferenceID)
	assert.Equal(t, "owner@example.com", *created.CustomerEmail)
	require.Len(t, created.LineItems, 1)
	assert.Equal(t, "price_pro", *created.LineItems[0].Price)
	assert.Equal(t, "acct-uuid", created.Metadata["account_id"])
	assert.Equal(t, "pro", created.Metadata["plan_code"])
	assert.Equal(t, "affiliate", created.Metadata["family"])
}

func TestNewCheckoutSessionRejectsEmptyURL(t *testing.T) {
	g := &StripeGateway{
		newCheckoutSession: func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			return &stripe.CheckoutSession{URL: "  "}, nil
		},
	}

	_, err := g.NewCheckoutSession(context.Background(), CheckoutParams{PriceID: "price_pro"})
	assert.Error(t, err)
}
