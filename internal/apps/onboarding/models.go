package onboarding

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Setup steps in completion order. Done is the terminal step.
var Steps = []string{"business_profile", "greeting", "call_routing", "calendar", "test_call", "done"}

const StepDone = "done"

type OnboardingState struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AccountID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"account_id"`
	CurrentStep string         `gorm:"size:30;not null;default:'business_profile'" json:"current_step"`
	StepData    datatypes.JSON `gorm:"type:jsonb" json:"step_data"`
	CompletedAt *time.Time     `json:"completed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DemoPasscode lets a prospect try a live demo receptionist before signing
// up. Admin-issued, single business, expires.
type DemoPasscode struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code         string    `gorm:"size:20;not null;uniqueIndex" json:"code"`
	BusinessName string    `gorm:"size:255;not null" json:"business_name"`
	PhoneNumber  string    `gorm:"size:50" json:"phone_number"`
	AssistantID  string    `gorm:"size:255;not null" json:"assistant_id"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	UsedCount    int       `gorm:"default:0" json:"used_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// --- DTOs ---

type CompleteStepRequest struct {
	Step string         `json:"step"`
	Data map[string]any `json:"data"`
}

type OnboardingStatusResponse struct {
	CurrentStep    string   `json:"current_step"`
	CompletedSteps []string `json:"completed_steps"`
	RemainingSteps []string `json:"remaining_steps"`
	Done           bool     `json:"done"`
}

type CreatePasscodeRequest struct {
	BusinessName string `json:"business_name"`
	PhoneNumber  string `json:"phone_number"`
	AssistantID  string `json:"assistant_id"`
	ExpiresInHrs int    `json:"expires_in_hours"`
}

type PasscodeLookupResponse struct {
	BusinessName string `json:"business_name"`
	PhoneNumber  string `json:"phone_number"`
	AssistantID  string `json:"assistant_id"`
}
