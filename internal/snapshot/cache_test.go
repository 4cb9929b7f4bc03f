package snapshot

import (
	"context"
	"testing"
	"time"

	"frontdesk/internal/events"
	"frontdesk/internal/models"
	"frontdesk/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMonitor struct {
	offline bool
}

func (m *fakeMonitor) IsOffline() bool { return m.offline }

func newTestCache(monitor *fakeMonitor) (*Cache, storage.Store) {
	store := storage.NewMemoryStore()
	logger := zerolog.Nop()
	return NewCache(store, monitor, events.NewEventBus(), &logger), store
}

func sampleBookings() []models.Booking {
	room := 101
	return []models.Booking{
		{
			ID:         "b1",
			HotelID:    "h1",
			RoomNumber: &room,
			GuestName:  "Alice",
			StartTime:  time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC),
			EndTime:    time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
			Status:     models.StatusCheckedIn,
		},
		{
			ID:        "b2",
			HotelID:   "h1",
			GuestName: "Bob",
			Status:    models.StatusConfirmed,
		},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	cache, _ := newTestCache(&fakeMonitor{})
	ctx := context.Background()
	bookings := sampleBookings()

	require.NoError(t, cache.Save(ctx, "h1", bookings))

	loaded, err := cache.Load(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, bookings, loaded)
}

func TestSaveSkippedWhileOffline(t *testing.T) {
	monitor := &fakeMonitor{}
	cache, _ := newTestCache(monitor)
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, "h1", sampleBookings()))

	// An offline save must not clobber the last known-good snapshot.
	monitor.offline = true
	require.NoError(t, cache.Save(ctx, "h1", nil))

	monitor.offline = false
	loaded, err := cache.Load(ctx, "h1")
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestLoadMissingSnapshotReturnsNil(t *testing.T) {
	cache, _ := newTestCache(&fakeMonitor{})

	loaded, err := cache.Load(context.Background(), "h1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadCorruptSnapshotDropsRecord(t *testing.T) {
	cache, store := newTestCache(&fakeMonitor{})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, models.SnapshotKeyPrefix+"h1", []byte("[broken")))

	loaded, err := cache.Load(ctx, "h1")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	_, err = store.Get(ctx, models.SnapshotKeyPrefix+"h1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSnapshotsAreScopedPerHotel(t *testing.T) {
	cache, _ := newTestCache(&fakeMonitor{})
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, "h1", sampleBookings()))
	require.NoError(t, cache.Save(ctx, "h2", sampleBookings()[:1]))

	h1, err := cache.Load(ctx, "h1")
	require.NoError(t, err)
	h2, err := cache.Load(ctx, "h2")
	require.NoError(t, err)

	assert.Len(t, h1, 2)
	assert.Len(t, h2, 1)
}
