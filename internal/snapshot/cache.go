// Package snapshot persists the last known-good booking dataset per hotel,
// served as the base dataset while the live feed is unavailable.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"frontdesk/internal/events"
	"frontdesk/internal/models"
	"frontdesk/internal/storage"

	"github.com/rs/zerolog"
)

// OnlineChecker gates snapshot writes on the fused connectivity state.
type OnlineChecker interface {
	IsOffline() bool
}

// Cache stores one snapshot record per hotel id. Records have no TTL: a
// long-offline terminal serves an arbitrarily old snapshot, surfaced only
// through the generic degraded-mode indicator.
type Cache struct {
	store   storage.Store
	monitor OnlineChecker
	bus     *events.EventBus
	logger  *zerolog.Logger
}

func NewCache(store storage.Store, monitor OnlineChecker, bus *events.EventBus, logger *zerolog.Logger) *Cache {
	return &Cache{
		store:   store,
		monitor: monitor,
		bus:     bus,
		logger:  logger,
	}
}

// Load returns the saved snapshot for a hotel, or nil when none exists.
// A corrupt record is dropped and reported as absent.
func (c *Cache) Load(ctx context.Context, hotelID string) ([]models.Booking, error) {
	key := models.SnapshotKeyPrefix + hotelID
	raw, err := c.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot for hotel %s: %w", hotelID, err)
	}

	var bookings []models.Booking
	if err := json.Unmarshal(raw, &bookings); err != nil {
		c.logger.Warn().Err(err).Str("hotel_id", hotelID).Msg("snapshot record corrupt, dropping")
		if delErr := c.store.Delete(ctx, key); delErr != nil {
			c.logger.Error().Err(delErr).Str("hotel_id", hotelID).Msg("delete corrupt snapshot")
		}
		return nil, nil
	}
	return bookings, nil
}

// Save overwrites the hotel's snapshot. Callers invoke it only on an actual
// live delivery; the online check here keeps a racing offline transition from
// clobbering a good snapshot with partial data.
func (c *Cache) Save(ctx context.Context, hotelID string, bookings []models.Booking) error {
	if c.monitor.IsOffline() {
		c.logger.Debug().Str("hotel_id", hotelID).Msg("offline, snapshot save skipped")
		return nil
	}

	raw, err := json.Marshal(bookings)
	if err != nil {
		return fmt.Errorf("encode snapshot for hotel %s: %w", hotelID, err)
	}
	if err := c.store.Set(ctx, models.SnapshotKeyPrefix+hotelID, raw); err != nil {
		return fmt.Errorf("write snapshot for hotel %s: %w", hotelID, err)
	}

	if err := c.bus.PublishJSON(events.EventSnapshotSaved, map[string]any{
		"hotel_id": hotelID,
		"bookings": len(bookings),
	}); err != nil {
		c.logger.Error().Err(err).Msg("publish snapshot event")
	}
	return nil
}
