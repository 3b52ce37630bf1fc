package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/echodeskai/echodesk-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	account *models.Account
	sub     *models.Subscription
	subErr  error

	applied []string
}

func (f *fakeStore) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if f.account == nil {
		return nil, ErrAccountNotFound
	}
	return f.account, nil
}

func (f *fakeStore) ActiveSubscription(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	return f.sub, f.subErr
}

func (f *fakeStore) ApplyPlanPointer(ctx context.Context, accountID uuid.UUID, planCode string) error {
	f.applied = append(f.applied, planCode)
	f.account.PlanCode = planCode
	return nil
}

type fakeGateway struct {
	status      string
	statusErr   error
	swapErr     error
	checkoutErr error

	swaps     []string
	checkouts []CheckoutParams
}

func (f *fakeGateway) SubscriptionStatus(ctx context.Context, subscriptionID string) (string, error) {
	return f.status, f.statusErr
}

func (f *fakeGateway) SwapPrice(ctx context.Context, subscriptionID, priceID string) error {
	f.swaps = append(f.swaps, priceID)
	return f.swapErr
}

func (f *fakeGateway) NewCheckoutSession(ctx context.Context, p CheckoutParams) (string, error) {
	f.checkouts = append(f.checkouts, p)
	if f.checkoutErr != nil {
		return "", f.checkoutErr
	}
	return "https://checkout.stripe.com/c/pay/test", nil
}

type fakeRecorder struct {
	changes []PlanChange
}

func (f *fakeRecorder) Record(change PlanChange) {
	f.changes = append(f.changes, change)
}

func newTestUpgrader(t *testing.T, store *fakeStore, gateway *fakeGateway, audit *fakeRecorder) *Upgrader {
	t.Helper()
	catalog, err := NewCatalog("affiliate", affiliatePlans())
	require.NoError(t, err)
	return NewUpgrader(catalog, store, gateway, audit)
}

func activeAccount(plan string) (*models.Account, *models.Subscription) {
	accountID := uuid.New()
	acct := &models.Account{ID: accountID, Email: "owner@example.com", Kind: models.KindAffiliate, PlanCode: plan}
	sub := &models.Subscription{
		ID:                   uuid.New(),
		AccountID:            accountID,
		Kind:                 models.KindAffiliate,
		StripeSubscriptionID: "sub_123",
		PlanCode:             plan,
		Status:               models.SubscriptionActive,
	}
	return acct, sub
}

func TestUpgradeProratesActiveSubscription(t *testing.T) {
	acct, sub := activeAccount("basic")
	store := &fakeStore{account: acct, sub: sub}
	gateway := &fakeGateway{status: "active"}
	audit := &fakeRecorder{}
	u := newTestUpgrader(t, store, gateway, audit)

	result, err := u.Upgrade(context.Background(), acct.ID, "agency")
	require.NoError(t, err)

	assert.False(t, result.RequiresCheckout)
	assert.Empty(t, result.CheckoutURL)
	assert.Equal(t, "basic", result.PreviousPlan)
	assert.Equal(t, "agency", result.NewPlan)
	assert.Equal(t, "Successfully upgraded to Agency", result.Message)

	require.Len(t, gateway.swaps, 1, "expected exactly one price swap")
	assert.Equal(t, "price_agency", gateway.swaps[0])
	assert.Empty(t, gateway.checkouts)

	require.Len(t, store.applied, 1)
	assert.Equal(t, "agency", store.applied[0])

	require.Len(t, audit.changes, 1)
	assert.Equal(t, "basic", audit.changes[0].OldPlanCode)
	assert.Equal(t, "agency", audit.changes[0].NewPlanCode)
	assert.Equal(t, "sub_123", audit.changes[0].StripeSubscriptionID)
}

func TestUpgradeWithoutSubscriptionGoesToCheckout(t *testing.T) {
	acct, _ := activeAccount("free")
	store := &fakeStore{account: acct}
	gateway := &fakeGateway{}
	audit := &fakeRecorder{}
	u := newTestUpgrader(t, store, gateway, audit)

	result, err := u.Upgrade(context.Background(), acct.ID, "pro")
	require.NoError(t, err)

	assert.True(t, result.RequiresCheckout)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/test", result.CheckoutURL)

	// Nothing mutates until the webhook confirms payment.
	assert.Empty(t, store.applied)
	assert.Empty(t, audit.changes)
	assert.Empty(t, gateway.swaps)
	assert.Equal(t, "free", acct.PlanCode)

	require.Len(t, gateway.checkouts, 1)
	assert.Equal(t, "price_pro", gateway.checkouts[0].PriceID)
	assert.Equal(t, acct.ID.String(), gateway.checkouts[0].AccountID)
	assert.Equal(t, "pro", gateway.checkouts[0].PlanCode)
}

func TestUpgradeLapsedSubscriptionGoesToCheckout(t *testing.T) {
	acct, sub := activeAccount("basic")
	store := &fakeStore{account: acct, sub: sub}
	gateway := &fakeGateway{status: "canceled"}
	audit := &fakeRecorder{}
	u := newTestUpgrader(t, store, gateway, audit)

	result, err := u.Upgrade(context.Background(), acct.ID, "pro")
	require.NoError(t, err)

	assert.True(t, result.RequiresCheckout)
	assert.Empty(t, gateway.swaps)
	assert.Empty(t, store.applied)
}

func TestUpgradeRejectsDowngradeBeforeTouchingProcessor(t *testing.T) {
	acct, sub := activeAccount("agency")
	store := &fakeStore{account: acct, sub: sub}
	gateway := &fakeGateway{status: "active"}
	audit := &fakeRecorder{}
	u := newTestUpgrader(t, store, gateway, audit)

	_, err := u.Upgrade(context.Background(), acct.ID, "basic")
	assert.ErrorIs(t, err, ErrDowngradeNotAllowed)

	assert.Empty(t, gateway.swaps)
	assert.Empty(t, gateway.checkouts)
	assert.Empty(t, store.applied)
	assert.Empty(t, audit.changes)
}

func TestUpgradeRejectsUnknownPlan(t *testing.T) {
	acct, _ := activeAccount("free")
	store := &fakeStore{account: acct}
	u := newTestUpgrader(t, store, &fakeGateway{}, &fakeRecorder{})

	_, err := u.Upgrade(context.Background(), acct.ID, "enterprise")
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestUpgradeRejectsUnknownCurrentPlan(t *testing.T) {
	acct, _ := activeAccount("legacy_gold")
	store := &fakeStore{account: acct}
	u := newTestUpgrader(t, store, &fakeGateway{}, &fakeRecorder{})

	_, err := u.Upgrade(context.Background(), acct.ID, "pro")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestUpgradeRejectsPlanWithoutPrice(t *testing.T) {
	catalog, err := NewCatalog("affiliate", []PlanSpec{
		{Code: "free", Name: "Free"},
		{Code: "beta", Name: "Beta"},
	})
	require.NoError(t, err)

	acct, _ := activeAccount("free")
	store := &fakeStore{account: acct}
	gateway := &fakeGateway{}
	u := NewUpgrader(catalog, store, gateway, &fakeRecorder{})

	_, err = u.Upgrade(context.Background(), acct.ID, "beta")
	assert.ErrorIs(t, err, ErrPlanNotPurchasable)
	assert.Empty(t, gateway.checkouts)
}

func TestUpgradeMissingAccount(t *testing.T) {
	store := &fakeStore{}
	u := newTestUpgrader(t, store, &fakeGateway{}, &fakeRecorder{})

	_, err := u.Upgrade(context.Background(), uuid.New(), "pro")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestUpgradeSurfacesMultipleActiveSubscriptions(t *testing.T) {
	acct, _ := activeAccount("basic")
	store := &fakeStore{account: acct, subErr: ErrMultipleActiveSubscriptions}
	u := newTestUpgrader(t, store, &fakeGateway{}, &fakeRecorder{})

	_, err := u.Upgrade(context.Background(), acct.ID, "pro")
	assert.ErrorIs(t, err, ErrMultipleActiveSubscriptions)
}

func TestUpgradeReleasesAccountLock(t *testing.T) {
	acct, sub := activeAccount("basic")
	store := &fakeStore{account: acct, sub: sub}
	gateway := &fakeGateway{status: "active"}
	u := newTestUpgrader(t, store, gateway, &fakeRecorder{})

	_, err := u.Upgrade(context.Background(), acct.ID, "agency")
	require.NoError(t, err)

	// A failing request must release its lock entry too.
	_, err = u.Upgrade(context.Background(), acct.ID, "basic")
	require.Error(t, err)

	u.mu.Lock()
	defer u.mu.Unlock()
	assert.Empty(t, u.locks, "lock entries must not accumulate across requests")
}

func TestUpgradeWrapsProrationFailure(t *testing.T) {
	acct, sub := activeAccount("basic")
	store := &fakeStore{account: acct, sub: sub}
	swapErr := errors.New("card declined")
	gateway := &fakeGateway{status: "active", swapErr: swapErr}
	audit := &fakeRecorder{}
	u := newTestUpgrader(t, store, gateway, audit)

	_, err := u.Upgrade(context.Background(), acct.ID, "pro")

	var prorationErr *ProrationError
	require.ErrorAs(t, err, &prorationErr)
	assert.ErrorIs(t, prorationErr.Err, swapErr)

	// The local plan pointer must not move when the processor failed.
	assert.Empty(t, store.applied)
	assert.Empty(t, audit.changes)
	assert.Equal(t, "basic", acct.PlanCode)
}
