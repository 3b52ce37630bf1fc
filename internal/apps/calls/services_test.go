package calls

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json", `{"sentiment":"positive"}`, `{"sentiment":"positive"}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}

func TestDeterministicCallResultIsStable(t *testing.T) {
	a := deterministicCallResult("call_abc", "answered")
	b := deterministicCallResult("call_abc", "answered")
	assert.Equal(t, a, b)

	assert.GreaterOrEqual(t, a.LeadScore, 1)
	assert.LessOrEqual(t, a.LeadScore, 100)
	assert.Contains(t, sentiments, a.Sentiment)
}

func TestDeterministicCallResultFlagsMissedCalls(t *testing.T) {
	missed := deterministicCallResult("call_1", "missed")
	assert.True(t, missed.FollowUpSuggested)

	voicemail := deterministicCallResult("call_2", "voicemail")
	assert.True(t, voicemail.FollowUpSuggested)

	answered := deterministicCallResult("call_3", "answered")
	assert.False(t, answered.FollowUpSuggested)

	booked := deterministicCallResult("call_4", "booked")
	assert.GreaterOrEqual(t, booked.LeadScore, 70)
}

func TestNormalizeSentiment(t *testing.T) {
	assert.Equal(t, "positive", normalizeSentiment(" Positive "))
	assert.Equal(t, "neutral", normalizeSentiment("NEUTRAL"))
	assert.Equal(t, "", normalizeSentiment("ecstatic"))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, clamp(-5, 1, 100))
	assert.Equal(t, 100, clamp(250, 1, 100))
	assert.Equal(t, 42, clamp(42, 1, 100))
}

func TestValidOutcome(t *testing.T) {
	for _, o := range CallOutcomes {
		assert.True(t, validOutcome(o), o)
	}
	assert.False(t, validOutcome("dropped"))
	assert.False(t, validOutcome(""))
}

type analyzeSpy struct {
	analyzeCalls int
	replaced     []*callAnalysisResult
}

func newAnalyzeTestService(call *Call, cached *CallInsight, analysis *callAnalysisResult, analyzeErr error) (*CallService, *analyzeSpy) {
	spy := &analyzeSpy{}
	s := &CallService{}
	s.analyze = func(transcript string) (*callAnalysisResult, error) {
		spy.analyzeCalls++
		if analyzeErr != nil {
			return nil, analyzeErr
		}
		return analysis, nil
	}
	s.loadCall = func(accountID, callID uuid.UUID) (*Call, error) {
		if call == nil || call.ID != callID || call.AccountID != accountID {
			return nil, ErrCallNotFound
		}
		return call, nil
	}
	s.loadInsight = func(callID uuid.UUID) (*CallInsight, error) {
		return cached, nil
	}
	s.replaceInsight = func(c *Call, a *callAnalysisResult) (*CallInsight, error) {
		spy.replaced = append(spy.replaced, a)
		return buildInsight(c, a), nil
	}
	return s, spy
}

func analyzedCall() *Call {
	return &Call{
		ID:             uuid.New(),
		AccountID:      uuid.New(),
		ProviderCallID: "call_abc",
		Outcome:        "answered",
		Transcript:     "Hi, I'd like to book a consultation.",
	}
}

func TestAnalyzeReturnsCachedInsight(t *testing.T) {
	call := analyzedCall()
	cached := &CallInsight{ID: uuid.New(), CallID: call.ID, Sentiment: "positive", LeadScore: 80}
	svc, spy := newAnalyzeTestService(call, cached, nil, nil)

	insight, err := svc.Analyze(call.AccountID, call.ID, false)
	require.NoError(t, err)

	assert.Same(t, cached, insight)
	assert.Zero(t, spy.analyzeCalls, "a cached insight must not trigger re-analysis")
	assert.Empty(t, spy.replaced)
}

func TestAnalyzeForceReplacesCachedInsight(t *testing.T) {
	call := analyzedCall()
	cached := &CallInsight{ID: uuid.New(), CallID: call.ID, Sentiment: "neutral", LeadScore: 40}
	analysis := &callAnalysisResult{
		Sentiment: "positive", LeadScore: 90, Intent: "booking",
		Topics: []string{"pricing", "availability"},
	}
	svc, spy := newAnalyzeTestService(call, cached, analysis, nil)

	insight, err := svc.Analyze(call.AccountID, call.ID, true)
	require.NoError(t, err)

	assert.Equal(t, 1, spy.analyzeCalls)
	require.Len(t, spy.replaced, 1)
	assert.Equal(t, "positive", insight.Sentiment)
	assert.Equal(t, 90, insight.LeadScore)
	assert.JSONEq(t, `["pricing","availability"]`, string(insight.Topics))
}

func TestAnalyzeRunsWhenNoInsightCached(t *testing.T) {
	call := analyzedCall()
	analysis := &callAnalysisResult{Sentiment: "neutral", LeadScore: 55, Intent: "question"}
	svc, spy := newAnalyzeTestService(call, nil, analysis, nil)

	insight, err := svc.Analyze(call.AccountID, call.ID, false)
	require.NoError(t, err)

	assert.Equal(t, 1, spy.analyzeCalls)
	assert.Equal(t, 55, insight.LeadScore)
	assert.JSONEq(t, `[]`, string(insight.Topics))
}

func TestAnalyzeFallsBackWhenProviderFails(t *testing.T) {
	call := analyzedCall()
	svc, spy := newAnalyzeTestService(call, nil, nil, errors.New("gateway timeout"))

	insight, err := svc.Analyze(call.AccountID, call.ID, false)
	require.NoError(t, err)

	want := deterministicCallResult(call.ProviderCallID, call.Outcome)
	assert.Equal(t, want.Sentiment, insight.Sentiment)
	assert.Equal(t, want.LeadScore, insight.LeadScore)
	assert.Equal(t, 1, spy.analyzeCalls)
	require.Len(t, spy.replaced, 1)
}

func TestAnalyzeUnknownCall(t *testing.T) {
	svc, spy := newAnalyzeTestService(nil, nil, nil, nil)

	_, err := svc.Analyze(uuid.New(), uuid.New(), true)
	assert.ErrorIs(t, err, ErrCallNotFound)
	assert.Zero(t, spy.analyzeCalls)
}

func TestBusiestHour(t *testing.T) {
	assert.Equal(t, -1, busiestHour(map[int]int64{}))
	assert.Equal(t, 9, busiestHour(map[int]int64{9: 5, 14: 3}))
	// Ties resolve to the earlier hour.
	assert.Equal(t, 9, busiestHour(map[int]int64{14: 5, 9: 5}))
}
