package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account kinds. Affiliates resell the product; customers are the end
// businesses using the receptionist.
const (
	KindAffiliate = "affiliate"
	KindCustomer  = "customer"
)

// Account is a billable login: either an affiliate/reseller or an end customer.
// PlanCode always points at a plan in the catalog family matching Kind.
type Account struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email            string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password         string         `gorm:"not null" json:"-"`
	Role             string         `gorm:"size:20;default:'user'" json:"role"`
	Kind             string         `gorm:"size:20;not null;index" json:"kind"`
	CompanyName      string         `gorm:"size:255" json:"company_name"`
	PlanCode         string         `gorm:"size:50;not null" json:"plan_code"`
	StripeCustomerID *string        `gorm:"size:255;index" json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}
