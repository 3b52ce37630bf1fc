package training

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrItemNotFound = errors.New("training item not found")

type TrainingService struct {
	db *gorm.DB
}

func NewTrainingService(db *gorm.DB) *TrainingService {
	return &TrainingService{db: db}
}

// ListForAccount returns published items in order, flagged with the
// account's completion state, plus an overall percentage.
func (s *TrainingService) ListForAccount(accountID uuid.UUID) (*TrainingListResponse, error) {
	var items []TrainingItem
	if err := s.db.Where("published = true").Order("position ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list training items: %w", err)
	}

	var progress []TrainingProgress
	if err := s.db.Where("account_id = ?", accountID).Find(&progress).Error; err != nil {
		return nil, fmt.Errorf("failed to load training progress: %w", err)
	}

	done := make(map[uuid.UUID]bool, len(progress))
	for _, p := range progress {
		done[p.ItemID] = true
	}

	resp := &TrainingListResponse{
		Items:      make([]ItemWithProgress, 0, len(items)),
		TotalCount: len(items),
	}
	for _, item := range items {
		completed := done[item.ID]
		if completed {
			resp.CompletedCount++
		}
		resp.Items = append(resp.Items, ItemWithProgress{TrainingItem: item, Completed: completed})
	}
	if resp.TotalCount > 0 {
		resp.ProgressPercent = resp.CompletedCount * 100 / resp.TotalCount
	}
	return resp, nil
}

// MarkComplete records completion of a published item. Completing the same
// item twice is a no-op.
func (s *TrainingService) MarkComplete(accountID, itemID uuid.UUID) error {
	var item TrainingItem
	err := s.db.Where("published = true").First(&item, "id = ?", itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrItemNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load training item: %w", err)
	}

	var existing TrainingProgress
	err = s.db.Where("account_id = ? AND item_id = ?", accountID, itemID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check training progress: %w", err)
	}

	record := TrainingProgress{
		ID:          uuid.New(),
		AccountID:   accountID,
		ItemID:      itemID,
		CompletedAt: time.Now(),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to record training progress: %w", err)
	}
	return nil
}

func (s *TrainingService) CreateItem(req *CreateItemRequest) (*TrainingItem, error) {
	if req.Title == "" {
		return nil, errors.New("title is required")
	}

	item := TrainingItem{
		ID:       uuid.New(),
		Title:    req.Title,
		Category: req.Category,
		Body:     req.Body,
		VideoURL: req.VideoURL,
		Position: req.Position,
	}
	if err := s.db.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("failed to create training item: %w", err)
	}
	return &item, nil
}

func (s *TrainingService) UpdateItem(itemID uuid.UUID, req *UpdateItemRequest) (*TrainingItem, error) {
	var item TrainingItem
	err := s.db.First(&item, "id = ?", itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load training item: %w", err)
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Body != nil {
		updates["body"] = *req.Body
	}
	if req.VideoURL != nil {
		updates["video_url"] = *req.VideoURL
	}
	if req.Position != nil {
		updates["position"] = *req.Position
	}
	if req.Published != nil {
		updates["published"] = *req.Published
	}
	if len(updates) == 0 {
		return &item, nil
	}

	if err := s.db.Model(&item).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update training item: %w", err)
	}
	return &item, nil
}

func (s *TrainingService) DeleteItem(itemID uuid.UUID) error {
	result := s.db.Delete(&TrainingItem{}, "id = ?", itemID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete training item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ListAll returns every item including drafts (admin view).
func (s *TrainingService) ListAll() ([]TrainingItem, error) {
	var items []TrainingItem
	err := s.db.Order("position ASC").Find(&items).Error
	return items, err
}
