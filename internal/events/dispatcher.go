package events

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-boxoffice/internal/adapter"
	"github.com/feral-file/ff-boxoffice/internal/domain"
	"github.com/feral-file/ff-boxoffice/internal/logger"
	"github.com/feral-file/ff-boxoffice/internal/store"
	"github.com/feral-file/ff-boxoffice/internal/webhook"
)

// DispatcherConfig holds configuration for the outbox dispatcher
type DispatcherConfig struct {
	PoolSize     int           // Concurrent deliveries
	BatchSize    int           // Events to pick up per cycle
	PollInterval time.Duration // Sleep between cycles when the outbox is empty
}

// Dispatcher drains the event outbox: each pending event is published to
// NATS and delivered to every registered webhook endpoint, then marked
// dispatched. An event is only marked after all deliveries succeed, so a
// partial failure leads to redelivery (at-least-once; consumers dedupe on
// event id).
type Dispatcher struct {
	config    *DispatcherConfig
	store     store.Store
	publisher Publisher
	sender    *webhook.Sender
	clock     adapter.Clock
	pool      pond.Pool
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewDispatcher creates an outbox dispatcher
func NewDispatcher(config *DispatcherConfig, st store.Store, publisher Publisher, sender *webhook.Sender, clock adapter.Clock) *Dispatcher {
	return &Dispatcher{
		config:    config,
		store:     st,
		publisher: publisher,
		sender:    sender,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start begins the dispatcher's main loop - continuously drains the outbox
func (d *Dispatcher) Start(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already running")
	}
	defer func() {
		d.running.Store(false)
		close(d.stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting outbox dispatcher",
		zap.Int("pool_size", d.config.PoolSize),
		zap.Int("batch_size", d.config.BatchSize),
		zap.Duration("poll_interval", d.config.PollInterval),
	)

	d.pool = pond.NewPool(
		d.config.PoolSize,
		pond.WithQueueSize(d.config.BatchSize),
		pond.WithContext(ctx),
	)

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Outbox dispatcher stopping due to context cancellation", zap.Error(ctx.Err()))
			d.cleanup()
			return nil
		case <-d.stopChan:
			logger.InfoCtx(ctx, "Outbox dispatcher stop requested")
			d.cleanup()
			return nil
		default:
			if err := d.runCycle(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.ErrorCtx(ctx, err)
				}
			}
		}
	}
}

// Stop gracefully stops the dispatcher with timeout support
func (d *Dispatcher) Stop(ctx context.Context) error {
	if !d.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping outbox dispatcher")
	close(d.stopChan)

	select {
	case <-d.stoppedCh:
		logger.InfoCtx(ctx, "Outbox dispatcher stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Outbox dispatcher stop interrupted by context timeout")
		return ctx.Err()
	}
}

func (d *Dispatcher) cleanup() {
	if d.pool != nil {
		d.pool.StopAndWait()
	}
}

// runCycle picks up one batch of pending events and dispatches them
// concurrently.
func (d *Dispatcher) runCycle(ctx context.Context) error {
	events, err := d.store.ListPendingEvents(ctx, d.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending events: %w", err)
	}

	if len(events) == 0 {
		if !d.sleep(ctx, d.config.PollInterval) {
			return ctx.Err()
		}
		return nil
	}

	endpoints, err := d.store.ListWebhookEndpoints(ctx)
	if err != nil {
		return fmt.Errorf("failed to list webhook endpoints: %w", err)
	}

	for _, event := range events {
		d.pool.Submit(func() {
			d.dispatchWithRetry(ctx, &event, endpoints)
		})
	}
	d.pool.StopAndWait()

	// Recreate pool for next cycle
	d.pool = pond.NewPool(
		d.config.PoolSize,
		pond.WithQueueSize(d.config.BatchSize),
		pond.WithContext(ctx),
	)

	if !d.sleep(ctx, d.config.PollInterval) {
		return ctx.Err()
	}
	return nil
}

// dispatchWithRetry attempts to dispatch one event with exponential backoff.
// An event that still fails after the retry window stays in the outbox and
// is picked up again next cycle.
func (d *Dispatcher) dispatchWithRetry(ctx context.Context, event *domain.Event, endpoints []domain.WebhookEndpoint) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5 // Add jitter to prevent thundering herd

	operation := func() error {
		return d.dispatch(ctx, event, endpoints)
	}

	var attemptCount int
	notifyOnError := func(err error, duration time.Duration) {
		attemptCount++
		logger.WarnCtx(ctx, "Event dispatch failed, retrying",
			zap.Error(err),
			zap.String("event_id", event.ID),
			zap.Int("attempt", attemptCount),
			zap.Duration("next_retry_in", duration),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notifyOnError); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to dispatch event, leaving in outbox: %w", err),
			zap.String("event_id", event.ID),
			zap.String("kind", string(event.Kind)),
		)
	}
}

// dispatch publishes the event to NATS, delivers it to every registered
// webhook endpoint, then marks it dispatched.
func (d *Dispatcher) dispatch(ctx context.Context, event *domain.Event, endpoints []domain.WebhookEndpoint) error {
	if err := d.publisher.PublishEvent(ctx, event); err != nil {
		return err
	}

	webhookEvent := webhook.WebhookEvent{
		EventID:   event.ID,
		EventType: string(event.Kind),
		Timestamp: event.CreatedAt,
		Data:      event.Payload,
	}
	for i := range endpoints {
		result, err := d.sender.Deliver(ctx, &endpoints[i], webhookEvent)
		if err != nil {
			return fmt.Errorf("failed to deliver to %s (HTTP %d): %w", endpoints[i].URL, result.StatusCode, err)
		}
	}

	if err := d.store.MarkEventDispatched(ctx, event.ID); err != nil {
		return fmt.Errorf("failed to mark event dispatched: %w", err)
	}

	logger.DebugCtx(ctx, "Dispatched event",
		zap.String("event_id", event.ID),
		zap.String("kind", string(event.Kind)),
	)
	return nil
}

// sleep sleeps for the given duration but can be interrupted by context
// cancellation or a stop request.
func (d *Dispatcher) sleep(ctx context.Context, duration time.Duration) bool {
	select {
	case <-d.clock.After(duration):
		return true
	case <-d.stopChan:
		return false
	case <-ctx.Done():
		return false
	}
}
