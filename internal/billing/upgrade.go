package billing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/echodeskai/echodesk-backend/internal/models"
	"github.com/google/uuid"
)

// PlanChange is what the audit trail records for one successful upgrade.
type PlanChange struct {
	AccountID            uuid.UUID
	OldPlanCode          string
	NewPlanCode          string
	StripeSubscriptionID string
	InitiatedBy          uuid.UUID
}

// Recorder accepts audit entries. Recording is best-effort and must never
// fail the upgrade that produced the entry.
type Recorder interface {
	Record(change PlanChange)
}

// UpgradeResult is the outcome of an upgrade request. Either the account
// was sent to checkout (nothing mutated yet, the webhook activates the plan
// later) or the existing subscription was prorated in place.
type UpgradeResult struct {
	RequiresCheckout bool
	CheckoutURL      string
	PreviousPlan     string
	NewPlan          string
	Message          string
}

// Upgrader runs the plan-upgrade flow for one plan family.
type Upgrader struct {
	catalog *Catalog
	store   PlanStore
	gateway Gateway
	audit   Recorder

	mu    sync.Mutex
	locks map[uuid.UUID]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func NewUpgrader(catalog *Catalog, store PlanStore, gateway Gateway, audit Recorder) *Upgrader {
	return &Upgrader{
		catalog: catalog,
		store:   store,
		gateway: gateway,
		audit:   audit,
		locks:   make(map[uuid.UUID]*accountLock),
	}
}

// lockFor acquires the per-account lock, guarding against two concurrent
// upgrade requests for the same account racing past a stale plan read. The
// returned release func drops the map entry once the last holder is done,
// so the map does not grow with every account that ever upgraded.
func (u *Upgrader) lockFor(accountID uuid.UUID) func() {
	u.mu.Lock()
	l, ok := u.locks[accountID]
	if !ok {
		l = &accountLock{}
		u.locks[accountID] = l
	}
	l.refs++
	u.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		u.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(u.locks, accountID)
		}
		u.mu.Unlock()
	}
}

// Upgrade moves an account to a strictly higher plan tier. With no usable
// subscription it returns a fresh checkout URL and mutates nothing; with a
// live subscription it swaps the price with immediate prorated invoicing,
// moves the plan pointer, and queues an audit record.
func (u *Upgrader) Upgrade(ctx context.Context, accountID uuid.UUID, newPlanCode string) (*UpgradeResult, error) {
	release := u.lockFor(accountID)
	defer release()

	acct, err := u.store.Account(ctx, accountID)
	if err != nil {
		return nil, err
	}

	current, ok := u.catalog.Resolve(acct.PlanCode)
	if !ok {
		return nil, ErrPlanNotFound
	}
	target, ok := u.catalog.Resolve(newPlanCode)
	if !ok {
		return nil, ErrInvalidPlan
	}
	if err := u.catalog.ValidateUpgrade(current.Code, target.Code); err != nil {
		return nil, err
	}
	if target.StripePriceID == "" {
		return nil, ErrPlanNotPurchasable
	}

	sub, err := u.store.ActiveSubscription(ctx, accountID)
	if err != nil {
		return nil, err
	}

	// "Never subscribed" and "subscribed but lapsed at the processor" get
	// the same remediation: a fresh checkout.
	needsCheckout := sub == nil || sub.StripeSubscriptionID == ""
	if !needsCheckout {
		status, err := u.gateway.SubscriptionStatus(ctx, sub.StripeSubscriptionID)
		if err != nil {
			return nil, fmt.Errorf("failed to verify subscription status: %w", err)
		}
		if status != models.SubscriptionActive {
			needsCheckout = true
		}
	}

	if needsCheckout {
		url, err := u.gateway.NewCheckoutSession(ctx, CheckoutParams{
			PriceID:       target.StripePriceID,
			CustomerEmail: acct.Email,
			AccountID:     accountID.String(),
			PlanCode:      target.Code,
			Family:        u.catalog.Family(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create checkout session: %w", err)
		}
		return &UpgradeResult{
			RequiresCheckout: true,
			CheckoutURL:      url,
			PreviousPlan:     current.Code,
			NewPlan:          target.Code,
			Message:          fmt.Sprintf("Complete checkout to activate the %s plan", target.Name),
		}, nil
	}

	if err := u.gateway.SwapPrice(ctx, sub.StripeSubscriptionID, target.StripePriceID); err != nil {
		return nil, &ProrationError{Err: err}
	}

	if err := u.store.ApplyPlanPointer(ctx, accountID, target.Code); err != nil {
		// Stripe already charged the new price; this needs a human.
		slog.Error("plan pointer update failed after proration",
			"account_id", accountID.String(),
			"new_plan", target.Code,
			"error", err)
		return nil, fmt.Errorf("failed to apply plan change: %w", err)
	}

	// Success is decided here; the audit write happens off the request path.
	u.audit.Record(PlanChange{
		AccountID:            accountID,
		OldPlanCode:          current.Code,
		NewPlanCode:          target.Code,
		StripeSubscriptionID: sub.StripeSubscriptionID,
		InitiatedBy:          accountID,
	})

	return &UpgradeResult{
		PreviousPlan: current.Code,
		NewPlan:      target.Code,
		Message:      fmt.Sprintf("Successfully upgraded to %s", target.Name),
	}, nil
}
