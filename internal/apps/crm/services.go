package crm

import (
	"errors"
	"fmt"

	"github.com/echodeskai/echodesk-backend/internal/account"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrContactNotFound = errors.New("contact not found")
	ErrInvalidStage    = errors.New("invalid pipeline stage")
	ErrStageRegression = errors.New("contacts cannot move backwards in the pipeline")
	ErrContactClosed   = errors.New("contact is already closed")
)

type ContactService struct {
	db *gorm.DB
}

func NewContactService(db *gorm.DB) *ContactService {
	return &ContactService{db: db}
}

func stageRank(stage string) (int, bool) {
	for i, s := range PipelineStages {
		if s == stage {
			return i, true
		}
	}
	return 0, false
}

func isClosed(stage string) bool {
	return stage == StageWon || stage == StageLost
}

// validateStageMove applies the pipeline rules: open stages move forward
// only, won and lost are reachable from any open stage and are terminal.
func validateStageMove(current, requested string) error {
	requestedRank, ok := stageRank(requested)
	if !ok {
		return ErrInvalidStage
	}
	if isClosed(current) {
		return ErrContactClosed
	}
	if !isClosed(requested) {
		currentRank, _ := stageRank(current)
		if requestedRank <= currentRank {
			return ErrStageRegression
		}
	}
	return nil
}

func (s *ContactService) CreateContact(accountID uuid.UUID, req *CreateContactRequest) (*Contact, error) {
	if req.Name == "" {
		return nil, errors.New("name is required")
	}

	contact := Contact{
		ID:          uuid.New(),
		AccountID:   accountID,
		Name:        req.Name,
		CompanyName: req.CompanyName,
		Email:       req.Email,
		Phone:       req.Phone,
		Stage:       PipelineStages[0],
		Source:      req.Source,
	}

	if err := s.db.Create(&contact).Error; err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return &contact, nil
}

func (s *ContactService) GetContact(accountID, contactID uuid.UUID) (*Contact, error) {
	var contact Contact
	err := s.db.Scopes(account.ForAccount(accountID)).First(&contact, "id = ?", contactID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}
	return &contact, nil
}

// ListContacts returns paginated contacts, optionally filtered by stage.
func (s *ContactService) ListContacts(accountID uuid.UUID, stage string, limit, offset int) ([]Contact, int64, error) {
	query := s.db.Model(&Contact{}).Scopes(account.ForAccount(accountID))
	if stage != "" {
		if _, ok := stageRank(stage); !ok {
			return nil, 0, ErrInvalidStage
		}
		query = query.Where("stage = ?", stage)
	}

	var total int64
	query.Count(&total)

	var contacts []Contact
	err := query.Order("updated_at DESC").Limit(limit).Offset(offset).Find(&contacts).Error
	return contacts, total, err
}

func (s *ContactService) UpdateContact(accountID, contactID uuid.UUID, req *UpdateContactRequest) (*Contact, error) {
	contact, err := s.GetContact(accountID, contactID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.CompanyName != nil {
		updates["company_name"] = *req.CompanyName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if len(updates) == 0 {
		return contact, nil
	}

	if err := s.db.Model(contact).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	return contact, nil
}

// MoveStage advances a contact through the pipeline. Open stages move
// forward only; won and lost are reachable from any open stage and are
// terminal.
func (s *ContactService) MoveStage(accountID, contactID uuid.UUID, newStage string) (*Contact, error) {
	if _, ok := stageRank(newStage); !ok {
		return nil, ErrInvalidStage
	}

	contact, err := s.GetContact(accountID, contactID)
	if err != nil {
		return nil, err
	}

	if err := validateStageMove(contact.Stage, newStage); err != nil {
		return nil, err
	}

	if err := s.db.Model(contact).Update("stage", newStage).Error; err != nil {
		return nil, fmt.Errorf("failed to move contact stage: %w", err)
	}
	contact.Stage = newStage
	return contact, nil
}

func (s *ContactService) DeleteContact(accountID, contactID uuid.UUID) error {
	result := s.db.Scopes(account.ForAccount(accountID)).Where("id = ?", contactID).Delete(&Contact{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete contact: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrContactNotFound
	}
	return nil
}

func (s *ContactService) AddNote(accountID, contactID uuid.UUID, body string) (*ContactNote, error) {
	if body == "" {
		return nil, errors.New("note body is required")
	}
	if _, err := s.GetContact(accountID, contactID); err != nil {
		return nil, err
	}

	note := ContactNote{
		ID:        uuid.New(),
		AccountID: accountID,
		ContactID: contactID,
		Body:      body,
	}
	if err := s.db.Create(&note).Error; err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return &note, nil
}

func (s *ContactService) ListNotes(accountID, contactID uuid.UUID) ([]ContactNote, error) {
	if _, err := s.GetContact(accountID, contactID); err != nil {
		return nil, err
	}

	var notes []ContactNote
	err := s.db.Scopes(account.ForAccount(accountID)).
		Where("contact_id = ?", contactID).
		Order("created_at DESC").
		Find(&notes).Error
	return notes, err
}

// PipelineSummary counts contacts per stage. Every stage appears in the
// result even when empty, so dashboards render a stable funnel.
func (s *ContactService) PipelineSummary(accountID uuid.UUID) (*PipelineSummaryResponse, error) {
	type row struct {
		Stage string
		Count int64
	}
	var rows []row
	err := s.db.Model(&Contact{}).
		Scopes(account.ForAccount(accountID)).
		Select("stage, count(*) as count").
		Group("stage").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize pipeline: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Stage] = r.Count
	}

	summary := &PipelineSummaryResponse{Stages: make([]StageCount, 0, len(PipelineStages))}
	for _, stage := range PipelineStages {
		summary.Stages = append(summary.Stages, StageCount{Stage: stage, Count: counts[stage]})
		summary.Total += counts[stage]
	}
	return summary, nil
}
