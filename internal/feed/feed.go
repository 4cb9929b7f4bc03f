// Package feed maintains the realtime booking subscription for the active
// hotel/day scope and exposes its connection status to the monitor's poll.
package feed

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"frontdesk/internal/events"
	"frontdesk/internal/models"

	"github.com/rs/zerolog"
)

// Fetcher reads the current dataset for a scope from the backend.
type Fetcher interface {
	FetchBookings(ctx context.Context, hotelID, date string) ([]models.Booking, error)
}

// DeliverFunc receives each successful live delivery.
type DeliverFunc = func(scope models.Scope, bookings []models.Booking)

// Client polls the shape endpoint for the active scope. A fetch failure marks
// the feed disconnected and doubles the wait up to maxInterval; Reconnect
// skips the backoff and fetches immediately.
type Client struct {
	fetcher Fetcher
	bus     *events.EventBus
	logger  *zerolog.Logger

	interval    time.Duration
	maxInterval time.Duration

	connected atomic.Bool
	reconnect chan struct{}

	mu        sync.Mutex
	scope     models.Scope
	onDeliver DeliverFunc
}

func NewClient(fetcher Fetcher, bus *events.EventBus, interval time.Duration, logger *zerolog.Logger) *Client {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	c := &Client{
		fetcher:     fetcher,
		bus:         bus,
		logger:      logger,
		interval:    interval,
		maxInterval: 30 * time.Second,
		reconnect:   make(chan struct{}, 1),
	}
	// Connected until a fetch says otherwise, so the terminal does not boot
	// into degraded mode.
	c.connected.Store(true)
	return c
}

// OnDeliver registers the single delivery consumer. Must be set before Start.
func (c *Client) OnDeliver(fn DeliverFunc) {
	c.mu.Lock()
	c.onDeliver = fn
	c.mu.Unlock()
}

// SetScope switches the subscription to a new hotel/day and fetches
// immediately.
func (c *Client) SetScope(scope models.Scope) {
	c.mu.Lock()
	c.scope = scope
	c.mu.Unlock()
	c.Reconnect()
}

// Connected reports whether the subscription is healthy: true until a fetch
// for an active scope fails.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Reconnect forces an immediate fetch, bypassing any backoff in progress.
func (c *Client) Reconnect() {
	select {
	case c.reconnect <- struct{}{}:
	default:
	}
}

// Start runs the subscription loop until ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	wait := c.interval
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.reconnect:
			wait = c.interval
		case <-timer.C:
		}

		if c.fetch(ctx) {
			wait = c.interval
		} else if wait < c.maxInterval {
			wait *= 2
			if wait > c.maxInterval {
				wait = c.maxInterval
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)
	}
}

func (c *Client) fetch(ctx context.Context) bool {
	c.mu.Lock()
	scope := c.scope
	deliver := c.onDeliver
	c.mu.Unlock()

	if scope.HotelID == "" {
		// No subscription yet is not an outage: keep the liveness poll from
		// flagging the terminal offline before a scope exists.
		c.connected.Store(true)
		return true
	}

	bookings, err := c.fetcher.FetchBookings(ctx, scope.HotelID, scope.Date)
	if err != nil {
		c.connected.Store(false)
		c.logger.Warn().Err(err).Str("hotel_id", scope.HotelID).Msg("feed fetch failed")
		return false
	}

	c.connected.Store(true)
	if deliver != nil {
		deliver(scope, bookings)
	}
	if err := c.bus.PublishJSON(events.EventFeedDelivered, map[string]any{
		"hotel_id": scope.HotelID,
		"date":     scope.Date,
		"bookings": len(bookings),
	}); err != nil {
		c.logger.Error().Err(err).Msg("publish feed event")
	}
	return true
}
