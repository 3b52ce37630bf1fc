package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/echodeskai/echodesk-backend/internal/billing"
	"github.com/echodeskai/echodesk-backend/internal/dto"
	"github.com/echodeskai/echodesk-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// webhookStore is the persistence surface the webhook handlers need.
type webhookStore interface {
	Account(id uuid.UUID) (*models.Account, error)
	// ActivateSubscription creates the subscription row and moves the
	// account's plan pointer in one transaction. It reports false without
	// touching anything when the subscription already exists.
	ActivateSubscription(acct *models.Account, sub *models.Subscription) (bool, error)
	// SubscriptionByStripeID returns (nil, nil) when no row matches.
	SubscriptionByStripeID(stripeID string) (*models.Subscription, error)
	UpdateSubscription(stripeID string, updates map[string]interface{}) error
}

// SubscriptionService applies Stripe webhook events to local state. Events
// replay: Stripe retries on non-2xx and may deliver duplicates, so every
// handler is written as an upsert or idempotent update.
type SubscriptionService struct {
	store    webhookStore
	catalogs billing.CatalogSet
	audit    billing.Recorder
}

func NewSubscriptionService(db *gorm.DB, catalogs billing.CatalogSet, audit billing.Recorder) *SubscriptionService {
	return &SubscriptionService{store: &gormWebhookStore{db: db}, catalogs: catalogs, audit: audit}
}

// HandleCheckoutCompleted activates the plan a checkout session purchased.
// The session carries the account id as the client reference and the plan
// code in metadata; a replayed event finds the subscription row already
// present and leaves state unchanged.
func (s *SubscriptionService) HandleCheckoutCompleted(session *dto.StripeCheckoutSession) error {
	accountID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		return fmt.Errorf("checkout session %s has no usable client reference: %w", session.ID, err)
	}
	planCode := session.Metadata["plan_code"]
	if planCode == "" {
		return fmt.Errorf("checkout session %s carries no plan code", session.ID)
	}

	acct, err := s.store.Account(accountID)
	if err != nil {
		return fmt.Errorf("account %s not found for checkout session %s: %w", accountID, session.ID, err)
	}

	catalog, ok := s.catalogs[acct.Kind]
	if !ok {
		return fmt.Errorf("account %s has unknown kind %q", accountID, acct.Kind)
	}
	if _, ok := catalog.Resolve(planCode); !ok {
		return fmt.Errorf("checkout session %s names unknown plan %q", session.ID, planCode)
	}

	oldPlan := acct.PlanCode

	sub := models.Subscription{
		ID:                   uuid.New(),
		AccountID:            accountID,
		Kind:                 acct.Kind,
		StripeSubscriptionID: session.Subscription,
		StripeCustomerID:     session.Customer,
		PlanCode:             planCode,
		Status:               models.SubscriptionActive,
	}

	created, err := s.store.ActivateSubscription(acct, &sub)
	if err != nil {
		return err
	}
	if !created {
		// Replay of an already processed session.
		return nil
	}

	if oldPlan != planCode {
		s.audit.Record(billing.PlanChange{
			AccountID:            accountID,
			OldPlanCode:          oldPlan,
			NewPlanCode:          planCode,
			StripeSubscriptionID: session.Subscription,
			InitiatedBy:          accountID,
		})
	}

	slog.Info("checkout completed",
		"account_id", accountID.String(),
		"plan_code", planCode,
		"stripe_subscription_id", session.Subscription)
	return nil
}

// HandleSubscriptionUpdated syncs status and period end from Stripe. An
// update for a subscription we never recorded is logged and skipped rather
// than failed, so Stripe does not retry it forever.
func (s *SubscriptionService) HandleSubscriptionUpdated(stripeSub *dto.StripeSubscription) error {
	sub, err := s.store.SubscriptionByStripeID(stripeSub.ID)
	if err != nil {
		return err
	}
	if sub == nil {
		slog.Warn("subscription update for unknown subscription", "stripe_subscription_id", stripeSub.ID)
		return nil
	}

	updates := map[string]interface{}{
		"status": localStatus(stripeSub.Status),
	}
	if stripeSub.CurrentPeriodEnd > 0 {
		updates["current_period_end"] = time.Unix(stripeSub.CurrentPeriodEnd, 0)
	}
	return s.store.UpdateSubscription(stripeSub.ID, updates)
}

// HandleSubscriptionDeleted marks the subscription inactive. Rows are never
// deleted; the history stays queryable.
func (s *SubscriptionService) HandleSubscriptionDeleted(stripeSub *dto.StripeSubscription) error {
	return s.store.UpdateSubscription(stripeSub.ID, map[string]interface{}{
		"status": models.SubscriptionInactive,
	})
}

// localStatus collapses Stripe's status vocabulary into ours. Only a
// subscription Stripe considers paid-up counts as active here.
func localStatus(stripeStatus string) string {
	switch stripeStatus {
	case "active", "trialing":
		return models.SubscriptionActive
	default:
		return models.SubscriptionInactive
	}
}

type gormWebhookStore struct {
	db *gorm.DB
}

func (g *gormWebhookStore) Account(id uuid.UUID) (*models.Account, error) {
	var acct models.Account
	if err := g.db.First(&acct, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &acct, nil
}

func (g *gormWebhookStore) ActivateSubscription(acct *models.Account, sub *models.Subscription) (bool, error) {
	created := false
	err := g.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Subscription
		err := tx.Where("stripe_subscription_id = ?", sub.StripeSubscriptionID).First(&existing).Error
		switch {
		case err == nil:
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		if err := tx.Create(sub).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"plan_code": sub.PlanCode}
		if acct.StripeCustomerID == nil && sub.StripeCustomerID != "" {
			updates["stripe_customer_id"] = sub.StripeCustomerID
		}
		if err := tx.Model(acct).Updates(updates).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (g *gormWebhookStore) SubscriptionByStripeID(stripeID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := g.db.Where("stripe_subscription_id = ?", stripeID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (g *gormWebhookStore) UpdateSubscription(stripeID string, updates map[string]interface{}) error {
	return g.db.Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", stripeID).
		Updates(updates).Error
}
