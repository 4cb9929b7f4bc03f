package models

import "time"

// PendingCheckinEvent is a manual check-in recorded while the terminal was
// offline. Immutable once created; it lives in the outbox until the backend
// acknowledges it or permanently rejects it.
type PendingCheckinEvent struct {
	BookingID  string    `json:"booking_id"`
	RoomNumber int       `json:"room_number"`
	HotelID    string    `json:"hotel_id"`
	Today      string    `json:"today"` // operational day, YYYY-MM-DD
	CreatedAt  time.Time `json:"created_at"`
}

// MatchesScope reports whether the event applies to the given hotel/day.
func (e PendingCheckinEvent) MatchesScope(scope Scope) bool {
	return e.HotelID == scope.HotelID && e.Today == scope.Date
}
