package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription statuses as stored internally. Stripe's richer status set is
// collapsed to these two; anything not active is inactive.
const (
	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
)

// Subscription mirrors the paid Stripe subscription for an account. Created
// by the checkout webhook, mutated in place on upgrade, never deleted.
type Subscription struct {
	ID                   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AccountID            uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`
	Kind                 string    `gorm:"size:20;not null;index" json:"kind"`
	StripeSubscriptionID string    `gorm:"size:255;index" json:"-"`
	StripeCustomerID     string    `gorm:"size:255" json:"-"`
	PlanCode             string    `gorm:"size:50" json:"plan_code"`
	Status               string    `gorm:"not null;default:'inactive';size:50" json:"status"`
	CurrentPeriodEnd     time.Time `json:"current_period_end"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	Account              Account   `gorm:"foreignKey:AccountID" json:"-"`
}
