package calls

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Call outcomes as reported by the voice provider.
var CallOutcomes = []string{"answered", "missed", "voicemail", "booked"}

type Call struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AccountID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"account_id"`
	ProviderCallID  string         `gorm:"size:255;not null;uniqueIndex" json:"provider_call_id"`
	CallerNumber    string         `gorm:"size:50" json:"caller_number"`
	CallerName      string         `gorm:"size:255" json:"caller_name"`
	StartedAt       time.Time      `gorm:"index" json:"started_at"`
	DurationSeconds int            `gorm:"default:0" json:"duration_seconds"`
	Outcome         string         `gorm:"size:20;not null;index" json:"outcome"`
	Transcript      string         `gorm:"type:text" json:"transcript"`
	Summary         string         `gorm:"type:text" json:"summary"`
	CreatedAt       time.Time      `json:"created_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// CallInsight caches the analysis of one call. Re-analysis only happens
// when explicitly forced.
type CallInsight struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AccountID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"account_id"`
	CallID            uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"call_id"`
	Sentiment         string         `gorm:"size:20" json:"sentiment"`
	LeadScore         int            `gorm:"default:0" json:"lead_score"`
	Intent            string         `gorm:"size:100" json:"intent"`
	Topics            datatypes.JSON `gorm:"type:jsonb" json:"topics"`
	FollowUpSuggested bool           `gorm:"default:false" json:"follow_up_suggested"`
	AnalyzedAt        time.Time      `json:"analyzed_at"`
	CreatedAt         time.Time      `json:"created_at"`
}

// --- DTOs ---

// VoiceCallPayload is what the voice provider posts when a call ends. The
// account is identified by the webhook path, not the body.
type VoiceCallPayload struct {
	CallID          string `json:"call_id"`
	CallerNumber    string `json:"caller_number"`
	CallerName      string `json:"caller_name"`
	StartedAt       int64  `json:"started_at"`
	DurationSeconds int    `json:"duration_seconds"`
	Outcome         string `json:"outcome"`
	Transcript      string `json:"transcript"`
}

type CallListResponse struct {
	Calls []Call `json:"calls"`
	Total int64  `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

type CallDetailResponse struct {
	Call    Call         `json:"call"`
	Insight *CallInsight `json:"insight,omitempty"`
}

type CallStatsResponse struct {
	TotalCalls            int64            `json:"total_calls"`
	AnsweredRate          float64          `json:"answered_rate"`
	AverageDurationSecs   float64          `json:"average_duration_seconds"`
	BusiestHour           int              `json:"busiest_hour"`
	OutcomeDistribution   map[string]int64 `json:"outcome_distribution"`
	SentimentDistribution map[string]int64 `json:"sentiment_distribution"`
	FollowUpsSuggested    int64            `json:"follow_ups_suggested"`
	AverageLeadScore      float64          `json:"average_lead_score"`
}
