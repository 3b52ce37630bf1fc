package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TrainingItem is a course unit for affiliates learning to sell and
// support the product. Admin-managed, ordered by Position.
type TrainingItem struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Category  string         `gorm:"size:100;index" json:"category"`
	Body      string         `gorm:"type:text" json:"body"`
	VideoURL  string         `gorm:"type:text" json:"video_url"`
	Position  int            `gorm:"not null;index" json:"position"`
	Published bool           `gorm:"default:false;index" json:"published"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type TrainingProgress struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AccountID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_training_account_item" json:"account_id"`
	ItemID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_training_account_item" json:"item_id"`
	CompletedAt time.Time `json:"completed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// --- DTOs ---

type CreateItemRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Body     string `json:"body"`
	VideoURL string `json:"video_url"`
	Position int    `json:"position"`
}

type UpdateItemRequest struct {
	Title     *string `json:"title"`
	Category  *string `json:"category"`
	Body      *string `json:"body"`
	VideoURL  *string `json:"video_url"`
	Position  *int    `json:"position"`
	Published *bool   `json:"published"`
}

type ItemWithProgress struct {
	TrainingItem
	Completed bool `json:"completed"`
}

type TrainingListResponse struct {
	Items           []ItemWithProgress `json:"items"`
	CompletedCount  int                `json:"completed_count"`
	TotalCount      int                `json:"total_count"`
	ProgressPercent int                `json:"progress_percent"`
}
