package processor

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"carworld-backend/internal/notification/domain"
	"carworld-backend/internal/notification/repository"
)

const (
	DefaultInterval   = 5 * time.Minute
	DefaultBatchSize  = 50
	DefaultMaxRetries = 3
)

// Sender delivers one notification immediately, bypassing the queue.
// Satisfied by *notification.Service.
type Sender interface {
	SendPushImmediately(ctx context.Context, userID, title, body string, data map[string]string) bool
}

// Processor drains the notification queue on a fixed interval. A single
// atomic flag keeps ticks from overlapping: if a tick is still running
// when the next one fires, the new tick is skipped outright. Better to
// under-process than to race.
//
// The guard is process-local; running more than one instance needs it
// moved to a shared store, or two processors will double-send.
type Processor struct {
	queueRepo repository.NotificationQueueRepository
	sender    Sender

	interval   time.Duration
	batchSize  int
	maxRetries int

	processing atomic.Bool
	stopChan   chan struct{}
	nowFunc    func() time.Time
}

// New creates a queue processor. Zero values fall back to the defaults.
func New(queueRepo repository.NotificationQueueRepository, sender Sender, interval time.Duration, batchSize, maxRetries int) *Processor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Processor{
		queueRepo:  queueRepo,
		sender:     sender,
		interval:   interval,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		stopChan:   make(chan struct{}),
		nowFunc:    time.Now,
	}
}

// Start begins the processing loop in the background.
func (p *Processor) Start(ctx context.Context) {
	log.Printf("[Processor] Starting notification processor (interval: %s, batch size: %d)", p.interval, p.batchSize)

	go func() {
		// Run immediately on start
		p.ProcessQueue(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.ProcessQueue(ctx)
			case <-p.stopChan:
				log.Println("[Processor] Processor stopped")
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop gracefully stops the processing loop.
func (p *Processor) Stop() {
	close(p.stopChan)
}

// ProcessQueue runs one tick: fetch a bounded batch of due rows and
// attempt delivery for each. Overlapping calls are skipped.
func (p *Processor) ProcessQueue(ctx context.Context) {
	if !p.processing.CompareAndSwap(false, true) {
		log.Println("[Processor] Previous cycle still running, skipping")
		return
	}
	defer p.processing.Store(false)

	due, err := p.queueRepo.FindDue(p.nowFunc(), p.batchSize)
	if err != nil {
		log.Printf("[Processor] Error fetching due notifications: %v", err)
		return
	}

	// Empty queue is normal operation, no log noise.
	if len(due) == 0 {
		return
	}

	log.Printf("[Processor] Processing %d pending notifications", len(due))

	successCount := 0
	failCount := 0

	for i := range due {
		if p.processOne(ctx, &due[i]) {
			successCount++
		} else {
			failCount++
		}
	}

	log.Printf("[Processor] Cycle complete: %d sent, %d failed", successCount, failCount)
}

// processOne handles a single row. Any error, including a panic, counts
// as a failed attempt for that row only; the batch keeps going.
func (p *Processor) processOne(ctx context.Context, item *domain.NotificationQueue) (success bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Processor] Panic processing notification %s: %v", item.ID, r)
			success = false
		}
	}()

	// Malformed metadata is ignorable, not fatal: deliver without a
	// payload rather than wedging the row.
	var data map[string]string
	if item.Metadata != "" {
		if err := json.Unmarshal([]byte(item.Metadata), &data); err != nil {
			log.Printf("[Processor] Failed to parse metadata for notification %s: %v", item.ID, err)
			data = nil
		}
	}

	sent := p.sender.SendPushImmediately(ctx, item.UserID, item.Title, item.Body, data)

	if sent {
		item.Status = domain.StatusSent
		if err := p.queueRepo.Save(item); err != nil {
			log.Printf("[Processor] Error updating notification %s: %v", item.ID, err)
			return false
		}
		return true
	}

	p.handleFailure(item)
	if err := p.queueRepo.Save(item); err != nil {
		log.Printf("[Processor] Error updating notification %s: %v", item.ID, err)
	}
	return false
}

// handleFailure applies the retry policy to a row whose attempt failed:
// bump the attempt counter, then either schedule the next retry or, once
// retries are exhausted, park the row in FAILED for good.
func (p *Processor) handleFailure(item *domain.NotificationQueue) {
	item.Attempts++

	if item.Attempts >= p.maxRetries {
		item.Status = domain.StatusFailed
		log.Printf("[Processor] Notification %s exhausted retries, marking as FAILED", item.ID)
		return
	}

	minutes := backoffMinutes(item.Attempts)
	item.NextRetryAt = p.nowFunc().Add(time.Duration(minutes) * time.Minute)
	log.Printf("[Processor] Notification %s will retry in %d minutes", item.ID, minutes)
}

// backoffMinutes grows exponentially (5, 25, 125, ...) with a floor of
// one minute and a cap of one hour between attempts.
func backoffMinutes(attempts int) int64 {
	minutes := int64(1)
	for i := 0; i < attempts; i++ {
		minutes *= 5
		if minutes > 60 {
			return 60
		}
	}
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
