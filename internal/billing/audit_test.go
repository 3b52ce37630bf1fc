package billing

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/echodeskai/echodesk-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuditWriter(insert func(*models.PlanChangeRecord) error) *AuditWriter {
	w := &AuditWriter{
		insert:  insert,
		backoff: time.Millisecond,
		queue:   make(chan PlanChange, auditQueueSize),
	}
	w.wg.Add(1)
	go w.writeLoop()
	return w
}

func TestAuditWriterPersistsRecords(t *testing.T) {
	var mu sync.Mutex
	var records []*models.PlanChangeRecord

	w := newTestAuditWriter(func(rec *models.PlanChangeRecord) error {
		mu.Lock()
		defer mu.Unlock()
		records = append(records, rec)
		return nil
	})

	accountID := uuid.New()
	w.Record(PlanChange{
		AccountID:            accountID,
		OldPlanCode:          "basic",
		NewPlanCode:          "agency",
		StripeSubscriptionID: "sub_123",
		InitiatedBy:          accountID,
	})
	w.Stop()

	require.Len(t, records, 1)
	assert.Equal(t, accountID, records[0].AccountID)
	assert.Equal(t, "basic", records[0].OldPlanCode)
	assert.Equal(t, "agency", records[0].NewPlanCode)
	assert.Equal(t, "sub_123", records[0].StripeSubscriptionID)
}

func TestAuditWriterRetriesThenDrops(t *testing.T) {
	var mu sync.Mutex
	attempts := 0

	w := newTestAuditWriter(func(rec *models.PlanChangeRecord) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return errors.New("connection refused")
	})

	w.Record(PlanChange{AccountID: uuid.New(), OldPlanCode: "free", NewPlanCode: "basic"})
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, auditMaxAttempts, attempts)
}

func TestAuditWriterRecoversAfterTransientFailure(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	var saved []*models.PlanChangeRecord

	w := newTestAuditWriter(func(rec *models.PlanChangeRecord) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return errors.New("deadlock detected")
		}
		saved = append(saved, rec)
		return nil
	})

	w.Record(PlanChange{AccountID: uuid.New(), OldPlanCode: "basic", NewPlanCode: "pro"})
	w.Stop()

	require.Len(t, saved, 1)
	assert.Equal(t, "pro", saved[0].NewPlanCode)
}

func TestAuditWriterDropsWhenQueueFull(t *testing.T) {
	w := &AuditWriter{
		insert:  func(*models.PlanChangeRecord) error { return nil },
		backoff: time.Millisecond,
		queue:   make(chan PlanChange, 1),
	}

	// No writeLoop running, so the second record finds the queue full.
	w.Record(PlanChange{AccountID: uuid.New()})
	w.Record(PlanChange{AccountID: uuid.New()})

	assert.Len(t, w.queue, 1)
}
