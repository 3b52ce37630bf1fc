package models

import (
	"time"

	"github.com/google/uuid"
)

// PlanChangeRecord is the append-only audit trail for plan mutations.
// Written best-effort after the authoritative mutation succeeds.
type PlanChangeRecord struct {
	ID                   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AccountID            uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`
	OldPlanCode          string    `gorm:"size:50;not null" json:"old_plan_code"`
	NewPlanCode          string    `gorm:"size:50;not null" json:"new_plan_code"`
	StripeSubscriptionID string    `gorm:"size:255" json:"-"`
	InitiatedBy          uuid.UUID `gorm:"type:uuid" json:"initiated_by"`
	CreatedAt            time.Time `gorm:"index" json:"created_at"`
}
