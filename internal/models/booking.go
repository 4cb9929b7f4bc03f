package models

import "time"

// Booking is the remote-owned booking record as delivered by the backend.
// IDs are kept as strings: booking ids can exceed the integer range that
// survives a JSON round trip.
type Booking struct {
	ID         string    `json:"id"`
	HotelID    string    `json:"hotel_id"`
	RoomNumber *int      `json:"room_number"`
	GuestName  string    `json:"guest_name"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Status     string    `json:"status"`
}

// Actionable reports whether the front desk can still act on the booking.
func (b Booking) Actionable() bool {
	return b.Status == StatusConfirmed || b.Status == StatusCheckedIn
}

// MergedBooking is a booking as presented by the reconciled view. PendingSync
// marks rows whose displayed state reflects a queued, unacknowledged check-in.
// Never persisted.
type MergedBooking struct {
	Booking
	PendingSync bool `json:"pending_sync"`
}

// Scope identifies the hotel and operational day a view is built for.
type Scope struct {
	HotelID string `json:"hotel_id"`
	Date    string `json:"date"` // YYYY-MM-DD
}

// Hotel is a pass-through read model, out of the sync engine's scope.
type Hotel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	RoomCount int    `json:"room_count"`
}

// DeskStatus summarizes the terminal for the status endpoint and the
// degraded-mode banner.
type DeskStatus struct {
	Scope      Scope `json:"scope"`
	Offline    bool  `json:"offline"`
	QueueDepth int   `json:"queue_depth"`
	LiveFeed   bool  `json:"live_feed"`
}
