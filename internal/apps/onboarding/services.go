package onboarding

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidStep      = errors.New("invalid onboarding step")
	ErrStepOutOfOrder   = errors.New("steps must be completed in order")
	ErrAlreadyDone      = errors.New("onboarding is already complete")
	ErrPasscodeNotFound = errors.New("passcode not found or expired")
)

const passcodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type OnboardingService struct {
	db *gorm.DB
}

func NewOnboardingService(db *gorm.DB) *OnboardingService {
	return &OnboardingService{db: db}
}

func stepIndex(step string) (int, bool) {
	for i, s := range Steps {
		if s == step {
			return i, true
		}
	}
	return 0, false
}

// GetOrCreate returns the account's onboarding state, creating a fresh one
// at the first step on first access.
func (s *OnboardingService) GetOrCreate(accountID uuid.UUID) (*OnboardingState, error) {
	var state OnboardingState
	err := s.db.Where("account_id = ?", accountID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state = OnboardingState{
			ID:          uuid.New(),
			AccountID:   accountID,
			CurrentStep: Steps[0],
			StepData:    datatypes.JSON([]byte("{}")),
		}
		if err := s.db.Create(&state).Error; err != nil {
			return nil, fmt.Errorf("failed to create onboarding state: %w", err)
		}
		return &state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load onboarding state: %w", err)
	}
	return &state, nil
}

func (s *OnboardingService) Status(accountID uuid.UUID) (*OnboardingStatusResponse, error) {
	state, err := s.GetOrCreate(accountID)
	if err != nil {
		return nil, err
	}

	idx, _ := stepIndex(state.CurrentStep)
	return &OnboardingStatusResponse{
		CurrentStep:    state.CurrentStep,
		CompletedSteps: Steps[:idx],
		RemainingSteps: Steps[idx:],
		Done:           state.CurrentStep == StepDone,
	}, nil
}

// CompleteStep finishes the current step and advances to the next. Only the
// current step can be completed; skipping ahead is rejected.
func (s *OnboardingService) CompleteStep(accountID uuid.UUID, req *CompleteStepRequest) (*OnboardingState, error) {
	reqIdx, ok := stepIndex(req.Step)
	if !ok || req.Step == StepDone {
		return nil, ErrInvalidStep
	}

	state, err := s.GetOrCreate(accountID)
	if err != nil {
		return nil, err
	}
	if state.CurrentStep == StepDone {
		return nil, ErrAlreadyDone
	}

	currentIdx, _ := stepIndex(state.CurrentStep)
	if reqIdx != currentIdx {
		return nil, ErrStepOutOfOrder
	}

	stepData := map[string]json.RawMessage{}
	if len(state.StepData) > 0 {
		if err := json.Unmarshal(state.StepData, &stepData); err != nil {
			stepData = map[string]json.RawMessage{}
		}
	}
	if req.Data != nil {
		encoded, err := json.Marshal(req.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode step data: %w", err)
		}
		stepData[req.Step] = encoded
	}
	merged, err := json.Marshal(stepData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode step data: %w", err)
	}

	nextStep := Steps[reqIdx+1]
	updates := map[string]interface{}{
		"current_step": nextStep,
		"step_data":    datatypes.JSON(merged),
	}
	if nextStep == StepDone {
		now := time.Now()
		updates["completed_at"] = &now
	}

	if err := s.db.Model(state).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to advance onboarding: %w", err)
	}
	state.CurrentStep = nextStep
	state.StepData = datatypes.JSON(merged)
	return state, nil
}

// CreatePasscode issues a demo passcode (admin only).
func (s *OnboardingService) CreatePasscode(req *CreatePasscodeRequest) (*DemoPasscode, error) {
	if req.BusinessName == "" {
		return nil, errors.New("business_name is required")
	}
	if req.AssistantID == "" {
		return nil, errors.New("assistant_id is required")
	}

	hours := req.ExpiresInHrs
	if hours <= 0 {
		hours = 72
	}

	code, err := generatePasscode(8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate passcode: %w", err)
	}

	passcode := DemoPasscode{
		ID:           uuid.New(),
		Code:         code,
		BusinessName: req.BusinessName,
		PhoneNumber:  req.PhoneNumber,
		AssistantID:  req.AssistantID,
		ExpiresAt:    time.Now().Add(time.Duration(hours) * time.Hour),
	}
	if err := s.db.Create(&passcode).Error; err != nil {
		return nil, fmt.Errorf("failed to store passcode: %w", err)
	}
	return &passcode, nil
}

// LookupPasscode resolves a live, unexpired passcode and counts the use.
func (s *OnboardingService) LookupPasscode(code string) (*PasscodeLookupResponse, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	var passcode DemoPasscode
	err := s.db.Where("code = ? AND expires_at > ?", code, time.Now()).First(&passcode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPasscodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up passcode: %w", err)
	}

	s.db.Model(&passcode).UpdateColumn("used_count", gorm.Expr("used_count + 1"))

	return &PasscodeLookupResponse{
		BusinessName: passcode.BusinessName,
		PhoneNumber:  passcode.PhoneNumber,
		AssistantID:  passcode.AssistantID,
	}, nil
}

func (s *OnboardingService) ListPasscodes() ([]DemoPasscode, error) {
	var passcodes []DemoPasscode
	err := s.db.Order("created_at DESC").Find(&passcodes).Error
	return passcodes, err
}

func (s *OnboardingService) DeletePasscode(id uuid.UUID) error {
	result := s.db.Delete(&DemoPasscode{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPasscodeNotFound
	}
	return nil
}

func generatePasscode(length int) (string, error) {
	var sb strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(passcodeAlphabet))))
		if err != nil {
			return "", err
		}
		sb.WriteByte(passcodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
