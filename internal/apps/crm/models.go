package crm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Pipeline stages in order. A contact moves forward through the open
// stages and ends in won or lost.
var PipelineStages = []string{"lead", "contacted", "demo_scheduled", "proposal", "won", "lost"}

const (
	StageWon  = "won"
	StageLost = "lost"
)

type Contact struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AccountID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"account_id"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	CompanyName string         `gorm:"size:255" json:"company_name"`
	Email       string         `gorm:"size:255" json:"email"`
	Phone       string         `gorm:"size:50" json:"phone"`
	Stage       string         `gorm:"size:30;not null;default:'lead';index" json:"stage"`
	Source      string         `gorm:"size:100" json:"source"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

type ContactNote struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`
	ContactID uuid.UUID `gorm:"type:uuid;not null;index" json:"contact_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// --- DTOs ---

type CreateContactRequest struct {
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Source      string `json:"source"`
}

type UpdateContactRequest struct {
	Name        *string `json:"name"`
	CompanyName *string `json:"company_name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
}

type MoveStageRequest struct {
	Stage string `json:"stage"`
}

type AddNoteRequest struct {
	Body string `json:"body"`
}

type ContactListResponse struct {
	Contacts []Contact `json:"contacts"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
}

type PipelineSummaryResponse struct {
	Stages []StageCount `json:"stages"`
	Total  int64        `json:"total"`
}

type StageCount struct {
	Stage string `json:"stage"`
	Count int64  `json:"count"`
}
