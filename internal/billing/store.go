package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/echodeskai/echodesk-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlanStore is the storage surface the upgrade flow needs. One
// implementation, instantiated once per plan family.
type PlanStore interface {
	Account(ctx context.Context, id uuid.UUID) (*models.Account, error)
	ActiveSubscription(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error)
	ApplyPlanPointer(ctx context.Context, accountID uuid.UUID, planCode string) error
}

// Store is the GORM-backed PlanStore for one subscription kind.
type Store struct {
	db   *gorm.DB
	kind string
}

func NewStore(db *gorm.DB, kind string) *Store {
	return &Store{db: db, kind: kind}
}

func (s *Store) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var acct models.Account
	err := s.db.WithContext(ctx).First(&acct, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return &acct, nil
}

// ActiveSubscription returns the single active subscription of this store's
// kind, or nil when none exists. More than one active row is a broken
// storage invariant and fails loudly instead of picking one arbitrarily.
func (s *Store) ActiveSubscription(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND kind = ? AND status = ?", accountID, s.kind, models.SubscriptionActive).
		Limit(2).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}

	switch len(subs) {
	case 0:
		return nil, nil
	case 1:
		return &subs[0], nil
	default:
		return nil, ErrMultipleActiveSubscriptions
	}
}

// ApplyPlanPointer moves the account's plan pointer and keeps the active
// subscription row's plan code in sync.
func (s *Store) ApplyPlanPointer(ctx context.Context, accountID uuid.UUID, planCode string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Account{}).
			Where("id = ?", accountID).
			Update("plan_code", planCode)
		if result.Error != nil {
			return fmt.Errorf("failed to update plan pointer: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrAccountNotFound
		}

		return tx.Model(&models.Subscription{}).
			Where("account_id = ? AND kind = ? AND status = ?", accountID, s.kind, models.SubscriptionActive).
			Update("plan_code", planCode).Error
	})
}
