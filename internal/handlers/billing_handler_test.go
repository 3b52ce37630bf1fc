package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/echodeskai/echodesk-backend/internal/billing"
	"github.com/echodeskai/echodesk-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	account *models.Account
	sub     *models.Subscription
}

func (s *stubStore) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if s.account == nil {
		return nil, billing.ErrAccountNotFound
	}
	return s.account, nil
}

func (s *stubStore) ActiveSubscription(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	return s.sub, nil
}

func (s *stubStore) ApplyPlanPointer(ctx context.Context, accountID uuid.UUID, planCode string) error {
	s.account.PlanCode = planCode
	return nil
}

type stubGateway struct {
	swapErr error
}

func (s *stubGateway) SubscriptionStatus(ctx context.Context, subscriptionID string) (string, error) {
	return models.SubscriptionActive, nil
}

func (s *stubGateway) SwapPrice(ctx context.Context, subscriptionID, priceID string) error {
	return s.swapErr
}

func (s *stubGateway) NewCheckoutSession(ctx context.Context, p billing.CheckoutParams) (string, error) {
	return "https://checkout.stripe.com/c/pay/test", nil
}

type noopRecorder struct{}

func (noopRecorder) Record(billing.PlanChange) {}

func testCatalog(t *testing.T) *billing.Catalog {
	t.Helper()
	catalog, err := billing.NewCatalog("affiliate", []billing.PlanSpec{
		{Code: "free", Name: "Free", MonthlyPrice: decimal.Zero},
		{Code: "basic", Name: "Basic", MonthlyPrice: decimal.NewFromInt(29), StripePriceID: "price_basic"},
		{Code: "agency", Name: "Agency", MonthlyPrice: decimal.NewFromInt(199), StripePriceID: "price_agency"},
	})
	require.NoError(t, err)
	return catalog
}

func newBillingApp(t *testing.T, accountID uuid.UUID, store *stubStore, gateway *stubGateway) *fiber.App {
	t.Helper()

	upgrader := billing.NewUpgrader(testCatalog(t), store, gateway, noopRecorder{})
	handler := NewBillingHandler(map[string]*billing.Upgrader{
		models.KindAffiliate: upgrader,
	})

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  accountID.String(),
			"kind": models.KindAffiliate,
		})
		c.Locals("user", token)
		return c.Next()
	})
	app.Post("/api/billing/upgrade", handler.Upgrade)
	return app
}

func doUpgrade(t *testing.T, app *fiber.App, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/billing/upgrade", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return resp.StatusCode, decoded
}

func TestUpgradeEndpointProratesInPlace(t *testing.T) {
	accountID := uuid.New()
	store := &stubStore{
		account: &models.Account{ID: accountID, Email: "a@b.co", Kind: models.KindAffiliate, PlanCode: "basic"},
		sub: &models.Subscription{
			AccountID:            accountID,
			StripeSubscriptionID: "sub_123",
			Status:               models.SubscriptionActive,
		},
	}
	app := newBillingApp(t, accountID, store, &stubGateway{})

	status, body := doUpgrade(t, app, `{"newPlanCode":"agency"}`)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Successfully upgraded to Agency", body["message"])
	assert.Equal(t, "basic", body["previousPlan"])
	assert.Equal(t, "agency", body["newPlan"])
	assert.NotContains(t, body, "requiresCheckout")
	assert.NotContains(t, body, "error")
}

func TestUpgradeEndpointReturnsCheckoutURL(t *testing.T) {
	accountID := uuid.New()
	store := &stubStore{
		account: &models.Account{ID: accountID, Email: "a@b.co", Kind: models.KindAffiliate, PlanCode: "free"},
	}
	app := newBillingApp(t, accountID, store, &stubGateway{})

	status, body := doUpgrade(t, app, `{"newPlanCode":"basic"}`)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["requiresCheckout"])
	assert.Equal(t, "https://checkout.stripe.com/c/pay/test", body["checkoutUrl"])
	assert.Equal(t, "free", store.account.PlanCode, "checkout path must not mutate the plan")
}

func TestUpgradeEndpointRejectsDowngrade(t *testing.T) {
	accountID := uuid.New()
	store := &stubStore{
		account: &models.Account{ID: accountID, Email: "a@b.co", Kind: models.KindAffiliate, PlanCode: "agency"},
	}
	app := newBillingApp(t, accountID, store, &stubGateway{})

	status, body := doUpgrade(t, app, `{"newPlanCode":"basic"}`)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "downgrades are not supported")
}

func TestUpgradeEndpointUnknownPlan(t *testing.T) {
	accountID := uuid.New()
	store := &stubStore{
		account: &models.Account{ID: accountID, Email: "a@b.co", Kind: models.KindAffiliate, PlanCode: "free"},
	}
	app := newBillingApp(t, accountID, store, &stubGateway{})

	status, body := doUpgrade(t, app, `{"newPlanCode":"enterprise"}`)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "unknown plan code", body["error"])
}

func TestUpgradeEndpointMissingAccount(t *testing.T) {
	accountID := uuid.New()
	app := newBillingApp(t, accountID, &stubStore{}, &stubGateway{})

	status, body := doUpgrade(t, app, `{"newPlanCode":"basic"}`)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "account not found", body["error"])
}

func TestUpgradeEndpointSurfacesProcessorError(t *testing.T) {
	accountID := uuid.New()
	store := &stubStore{
		account: &models.Account{ID: accountID, Email: "a@b.co", Kind: models.KindAffiliate, PlanCode: "basic"},
		sub: &models.Subscription{
			AccountID:            accountID,
			StripeSubscriptionID: "sub_123",
			Status:               models.SubscriptionActive,
		},
	}
	gateway := &stubGateway{swapErr: errors.New("Your card was declined.")}
	app := newBillingApp(t, accountID, store, gateway)

	status, body := doUpgrade(t, app, `{"newPlanCode":"agency"}`)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Your card was declined.", body["error"])
	assert.Equal(t, "basic", store.account.PlanCode)
}

func TestUpgradeEndpointRequiresPlanCode(t *testing.T) {
	accountID := uuid.New()
	store := &stubStore{
		account: &models.Account{ID: accountID, Email: "a@b.co", Kind: models.KindAffiliate, PlanCode: "free"},
	}
	app := newBillingApp(t, accountID, store, &stubGateway{})

	status, body := doUpgrade(t, app, `{}`)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "newPlanCode is required", body["error"])
}
