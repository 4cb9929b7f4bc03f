package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"frontdesk/internal/backend"
	"frontdesk/internal/domain"
	"frontdesk/internal/events"
	"frontdesk/internal/metrics"
	"frontdesk/internal/models"
	"frontdesk/internal/reconcile"

	"github.com/rs/zerolog"
)

// ErrOfflineUnavailable rejects actions that require connectivity while the
// terminal is offline. Check-in is not among them: it falls back to the queue.
var ErrOfflineUnavailable = errors.New("action requires connectivity")

// DeskService owns the active scope and the merged view. It selects the base
// dataset (live feed when present, else the hotel's snapshot), overlays the
// pending queue and recomputes on every change to any input.
type DeskService struct {
	client  domain.BackendClient
	queue   domain.PendingQueue
	cache   domain.SnapshotCache
	feed    domain.LiveFeed
	monitor domain.ConnectivityMonitor
	bus     *events.EventBus
	logger  *zerolog.Logger

	mu       sync.Mutex
	scope    models.Scope
	live     []models.Booking
	haveLive bool
	cached   map[string][]models.Booking
	view     []models.MergedBooking
	observed map[string]bool
}

func NewDeskService(
	client domain.BackendClient,
	queue domain.PendingQueue,
	cache domain.SnapshotCache,
	liveFeed domain.LiveFeed,
	monitor domain.ConnectivityMonitor,
	bus *events.EventBus,
	logger *zerolog.Logger,
) *DeskService {
	s := &DeskService{
		client:   client,
		queue:    queue,
		cache:    cache,
		feed:     liveFeed,
		monitor:  monitor,
		bus:      bus,
		logger:   logger,
		cached:   make(map[string][]models.Booking),
		observed: make(map[string]bool),
	}

	liveFeed.OnDeliver(s.handleDelivery)

	recompute := func(*events.Event) error {
		s.Recompute(context.Background())
		return nil
	}
	bus.Subscribe(events.EventQueueAppended, recompute)
	bus.Subscribe(events.EventQueueDrained, recompute)
	bus.Subscribe(events.EventQueueRejected, recompute)
	bus.Subscribe(events.EventConnectivityChanged, recompute)

	return s
}

// SetScope switches the terminal to a hotel/day. The hotel's snapshot is
// loaded the first time the hotel is observed; the live feed resubscribes
// immediately.
func (s *DeskService) SetScope(ctx context.Context, hotelID, date string) error {
	if hotelID == "" {
		return fmt.Errorf("hotel id is required")
	}
	if date == "" {
		date = time.Now().Format(models.DateFormat)
	}
	if _, err := time.Parse(models.DateFormat, date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	scope := models.Scope{HotelID: hotelID, Date: date}

	s.mu.Lock()
	s.scope = scope
	s.live = nil
	s.haveLive = false
	load := !s.observed[hotelID]
	s.observed[hotelID] = true
	s.mu.Unlock()

	if load {
		cached, err := s.cache.Load(ctx, hotelID)
		if err != nil {
			s.logger.Error().Err(err).Str("hotel_id", hotelID).Msg("load snapshot")
		} else {
			s.mu.Lock()
			s.cached[hotelID] = cached
			s.mu.Unlock()
		}
	}

	s.feed.SetScope(scope)
	s.Recompute(ctx)
	return nil
}

// View returns the current scope, the merged view and the degraded flag.
func (s *DeskService) View() (models.Scope, []models.MergedBooking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MergedBooking, len(s.view))
	copy(out, s.view)
	return s.scope, out, s.monitor.IsOffline()
}

// Checkin checks a guest in. Online it calls the backend directly; offline,
// or when the online call fails at the transport level, the check-in is
// queued for later delivery instead of being lost.
func (s *DeskService) Checkin(ctx context.Context, bookingID string, roomNumber int) error {
	s.mu.Lock()
	scope := s.scope
	s.mu.Unlock()

	event := models.PendingCheckinEvent{
		BookingID:  bookingID,
		RoomNumber: roomNumber,
		HotelID:    scope.HotelID,
		Today:      scope.Date,
	}

	if s.monitor.IsOffline() {
		return s.queue.Append(ctx, event)
	}

	err := s.client.Checkin(ctx, bookingID, scope.Date)
	if err == nil {
		s.monitor.ReportTransportSuccess()
		s.feed.Reconnect()
		return nil
	}
	if backend.IsNetworkError(err) {
		s.monitor.ReportTransportFailure()
		s.logger.Warn().Err(err).Str("booking_id", bookingID).Msg("online check-in failed, queueing offline event")
		return s.queue.Append(ctx, event)
	}
	return err
}

// Checkout requires connectivity; it is disabled in degraded mode.
func (s *DeskService) Checkout(ctx context.Context, bookingID string) error {
	return s.onlineOnly(ctx, bookingID, s.client.Checkout)
}

// Cancel requires connectivity; it is disabled in degraded mode.
func (s *DeskService) Cancel(ctx context.Context, bookingID string) error {
	return s.onlineOnly(ctx, bookingID, s.client.Cancel)
}

func (s *DeskService) onlineOnly(ctx context.Context, bookingID string, call func(context.Context, string) error) error {
	if s.monitor.IsOffline() {
		return ErrOfflineUnavailable
	}
	err := call(ctx, bookingID)
	if err == nil {
		s.monitor.ReportTransportSuccess()
		s.feed.Reconnect()
		return nil
	}
	if backend.IsNetworkError(err) {
		s.monitor.ReportTransportFailure()
	}
	return err
}

// ListHotels is a pass-through read.
func (s *DeskService) ListHotels(ctx context.Context) ([]models.Hotel, error) {
	return s.client.ListHotels(ctx)
}

// GetHotel is a pass-through read.
func (s *DeskService) GetHotel(ctx context.Context, hotelID string) (*models.Hotel, error) {
	return s.client.GetHotel(ctx, hotelID)
}

// Status reports connectivity, feed and queue state for the banner.
func (s *DeskService) Status() models.DeskStatus {
	s.mu.Lock()
	scope := s.scope
	s.mu.Unlock()
	return models.DeskStatus{
		Scope:      scope,
		Offline:    s.monitor.IsOffline(),
		QueueDepth: s.queue.Len(),
		LiveFeed:   s.feed.Connected(),
	}
}

// Recompute rebuilds the merged view from the current base dataset and the
// pending queue. Safe to call at any time; the merge itself is pure.
func (s *DeskService) Recompute(ctx context.Context) {
	s.mu.Lock()
	scope := s.scope
	base := s.cached[scope.HotelID]
	if s.haveLive {
		base = s.live
	}
	s.mu.Unlock()

	if scope.HotelID == "" {
		return
	}

	view := reconcile.Merge(base, s.queue.Pending(), scope)

	s.mu.Lock()
	s.view = view
	s.mu.Unlock()

	metrics.IncMergeRecompute()
	if err := s.bus.PublishJSON(events.EventViewUpdated, map[string]any{
		"hotel_id": scope.HotelID,
		"date":     scope.Date,
		"bookings": len(view),
	}); err != nil {
		s.logger.Error().Err(err).Msg("publish view event")
	}
}

// handleDelivery consumes a live feed delivery: it becomes the base dataset
// and, since it is an actual live delivery, overwrites the hotel's snapshot.
func (s *DeskService) handleDelivery(scope models.Scope, bookings []models.Booking) {
	s.mu.Lock()
	current := s.scope
	if scope != current {
		s.mu.Unlock()
		return
	}
	s.live = bookings
	s.haveLive = true
	s.cached[scope.HotelID] = bookings
	s.mu.Unlock()

	ctx := context.Background()
	if err := s.cache.Save(ctx, scope.HotelID, bookings); err != nil {
		s.logger.Error().Err(err).Str("hotel_id", scope.HotelID).Msg("save snapshot")
	}
	s.Recompute(ctx)
}
