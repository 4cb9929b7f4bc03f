// Package outbox owns the durable FIFO queue of offline check-ins and the
// drain loop that delivers them to the backend, at least once.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"frontdesk/internal/backend"
	"frontdesk/internal/events"
	"frontdesk/internal/metrics"
	"frontdesk/internal/models"
	"frontdesk/internal/storage"

	"github.com/rs/zerolog"
)

// ErrInvalidEvent rejects an append whose event is missing required fields.
// Nothing is enqueued on validation failure.
var ErrInvalidEvent = errors.New("invalid check-in event")

// Sender delivers one queued mutation to the backend.
type Sender interface {
	SendClientEvent(ctx context.Context, event models.PendingCheckinEvent) error
}

// ConnectivityReporter receives transport-level outcomes of drain attempts.
type ConnectivityReporter interface {
	ReportTransportFailure()
	ReportTransportSuccess()
}

// Queue is the exclusively owned pending-event queue. Order is append order;
// only the drain loop removes elements, and only ever the head. Every
// mutation persists the whole queue as a single record, so a reloaded queue
// is always fully formed.
type Queue struct {
	store    storage.Store
	sender   Sender
	reporter ConnectivityReporter
	bus      *events.EventBus
	logger   *zerolog.Logger

	mu      sync.Mutex
	pending []models.PendingCheckinEvent

	draining atomic.Bool
}

func NewQueue(store storage.Store, sender Sender, reporter ConnectivityReporter, bus *events.EventBus, logger *zerolog.Logger) *Queue {
	return &Queue{
		store:    store,
		sender:   sender,
		reporter: reporter,
		bus:      bus,
		logger:   logger,
	}
}

// Load restores the persisted queue. A corrupt record is dropped and the
// queue starts empty rather than crash-looping on every boot.
func (q *Queue) Load(ctx context.Context) error {
	raw, err := q.store.Get(ctx, models.OutboxStoreKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load outbox record: %w", err)
	}

	var pending []models.PendingCheckinEvent
	if err := json.Unmarshal(raw, &pending); err != nil {
		q.logger.Warn().Err(err).Msg("outbox record corrupt, dropping and starting empty")
		if delErr := q.store.Delete(ctx, models.OutboxStoreKey); delErr != nil {
			q.logger.Error().Err(delErr).Msg("delete corrupt outbox record")
		}
		return nil
	}

	q.mu.Lock()
	q.pending = pending
	q.mu.Unlock()
	metrics.SetOutboxDepth(len(pending))
	return nil
}

// Append validates and enqueues a check-in event, assigns its local
// timestamp, persists the queue and notifies subscribers.
func (q *Queue) Append(ctx context.Context, event models.PendingCheckinEvent) error {
	if err := validate(event); err != nil {
		return err
	}
	event.CreatedAt = time.Now()

	q.mu.Lock()
	next := make([]models.PendingCheckinEvent, 0, len(q.pending)+1)
	next = append(next, q.pending...)
	next = append(next, event)

	if err := q.persist(ctx, next); err != nil {
		q.mu.Unlock()
		return err
	}
	q.pending = next
	depth := len(next)
	q.mu.Unlock()

	// Published outside the lock: subscribers read the queue back.
	metrics.SetOutboxDepth(depth)
	q.publish(events.EventQueueAppended, event, depth)
	return nil
}

// Drain attempts to deliver the queue head. Single-flight: a call while a
// previous drain is still running is a no-op, so at most one network attempt
// is in flight at any time. 2xx and 4xx remove the head; 5xx and transport
// failures retain it for the next tick, indefinitely.
func (q *Queue) Drain(ctx context.Context) {
	if !q.draining.CompareAndSwap(false, true) {
		return
	}
	defer q.draining.Store(false)

	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	head := q.pending[0]
	q.mu.Unlock()

	err := q.sender.SendClientEvent(ctx, head)
	switch {
	case err == nil:
		q.reporter.ReportTransportSuccess()
		q.pop(ctx, head, events.EventQueueDrained)
		metrics.IncDrain("delivered")

	case backend.IsClientError(err):
		// Permanently inapplicable: logged, removed, not an operator error.
		q.logger.Warn().Err(err).Str("booking_id", head.BookingID).Msg("backend rejected queued check-in, dropping")
		q.pop(ctx, head, events.EventQueueRejected)
		metrics.IncDrain("rejected")

	case backend.IsNetworkError(err):
		q.reporter.ReportTransportFailure()
		q.logger.Error().Err(err).Str("booking_id", head.BookingID).Msg("drain transport failure, head retained")
		metrics.IncDrain("retained")

	default:
		// 5xx and anything unclassified: retry on the next tick.
		q.logger.Error().Err(err).Str("booking_id", head.BookingID).Msg("drain failed, head retained")
		metrics.IncDrain("retained")
	}
}

// Pending returns a copy of the queue in order.
func (q *Queue) Pending() []models.PendingCheckinEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.PendingCheckinEvent, len(q.pending))
	copy(out, q.pending)
	return out
}

// Len returns the queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) pop(ctx context.Context, head models.PendingCheckinEvent, eventType string) {
	q.mu.Lock()

	if len(q.pending) == 0 || q.pending[0].BookingID != head.BookingID {
		// Only drain removes elements, so the head cannot move underneath us.
		q.mu.Unlock()
		q.logger.Error().Str("booking_id", head.BookingID).Msg("queue head changed during drain")
		return
	}

	next := make([]models.PendingCheckinEvent, len(q.pending)-1)
	copy(next, q.pending[1:])

	if err := q.persist(ctx, next); err != nil {
		q.mu.Unlock()
		q.logger.Error().Err(err).Msg("persist queue after pop")
		return
	}
	q.pending = next
	depth := len(next)
	q.mu.Unlock()

	metrics.SetOutboxDepth(depth)
	q.publish(eventType, head, depth)
}

// persist serializes the entire queue and writes it as one record.
func (q *Queue) persist(ctx context.Context, pending []models.PendingCheckinEvent) error {
	raw, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("encode outbox record: %w", err)
	}
	if err := q.store.Set(ctx, models.OutboxStoreKey, raw); err != nil {
		return fmt.Errorf("write outbox record: %w", err)
	}
	return nil
}

func (q *Queue) publish(eventType string, event models.PendingCheckinEvent, depth int) {
	if err := q.bus.PublishJSON(eventType, events.QueueEventPayload{
		BookingID:  event.BookingID,
		RoomNumber: event.RoomNumber,
		HotelID:    event.HotelID,
		Today:      event.Today,
		QueueDepth: depth,
	}); err != nil {
		q.logger.Error().Err(err).Str("event_type", eventType).Msg("publish queue event")
	}
}

func validate(event models.PendingCheckinEvent) error {
	if event.BookingID == "" {
		return fmt.Errorf("%w: booking id is required", ErrInvalidEvent)
	}
	if event.RoomNumber <= 0 {
		return fmt.Errorf("%w: room number is required", ErrInvalidEvent)
	}
	if event.HotelID == "" {
		return fmt.Errorf("%w: hotel id is required", ErrInvalidEvent)
	}
	if event.Today == "" {
		return fmt.Errorf("%w: operational day is required", ErrInvalidEvent)
	}
	return nil
}
