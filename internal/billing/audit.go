package billing

import (
	"log/slog"
	"sync"
	"time"

	"github.com/echodeskai/echodesk-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	auditQueueSize    = 256
	auditMaxAttempts  = 3
	auditRetryBackoff = 2 * time.Second
)

// AuditWriter persists plan-change records off the request path. A failed
// insert is retried a few times and then dropped with an error log; it
// never rolls back or fails the upgrade that produced it.
type AuditWriter struct {
	insert  func(*models.PlanChangeRecord) error
	backoff time.Duration
	queue   chan PlanChange
	wg      sync.WaitGroup
}

func NewAuditWriter(db *gorm.DB) *AuditWriter {
	w := &AuditWriter{
		insert:  func(rec *models.PlanChangeRecord) error { return db.Create(rec).Error },
		backoff: auditRetryBackoff,
		queue:   make(chan PlanChange, auditQueueSize),
	}
	w.wg.Add(1)
	go w.writeLoop()
	return w
}

// Record enqueues a plan change. Non-blocking: with a full queue the entry
// is dropped and logged rather than stalling the caller.
func (w *AuditWriter) Record(change PlanChange) {
	select {
	case w.queue <- change:
	default:
		slog.Error("plan change audit queue full, dropping record",
			"account_id", change.AccountID.String(),
			"old_plan", change.OldPlanCode,
			"new_plan", change.NewPlanCode)
	}
}

// Stop drains pending records and waits for the writer to finish.
func (w *AuditWriter) Stop() {
	close(w.queue)
	w.wg.Wait()
}

func (w *AuditWriter) writeLoop() {
	defer w.wg.Done()
	for change := range w.queue {
		w.write(change)
	}
}

func (w *AuditWriter) write(change PlanChange) {
	rec := &models.PlanChangeRecord{
		ID:                   uuid.New(),
		AccountID:            change.AccountID,
		OldPlanCode:          change.OldPlanCode,
		NewPlanCode:          change.NewPlanCode,
		StripeSubscriptionID: change.StripeSubscriptionID,
		InitiatedBy:          change.InitiatedBy,
	}

	var err error
	for attempt := 1; attempt <= auditMaxAttempts; attempt++ {
		if err = w.insert(rec); err == nil {
			return
		}
		if attempt < auditMaxAttempts {
			time.Sleep(w.backoff)
		}
	}

	slog.Error("plan change audit write failed, record lost",
		"account_id", change.AccountID.String(),
		"old_plan", change.OldPlanCode,
		"new_plan", change.NewPlanCode,
		"error", err)
}
