// Package reconcile merges the authoritative (or cached) booking dataset with
// pending local mutations into the single ordered view the dashboard renders.
package reconcile

import (
	"sort"
	"strings"

	"frontdesk/internal/models"
)

// Merge overlays pending check-in events onto a base dataset and returns the
// ordered view. Pure: identical inputs yield value-equal output, and neither
// input slice is mutated.
//
// Events are applied oldest-first, so the latest queued event for a booking
// wins by queue position. Events whose booking is not in base are skipped:
// they are re-evaluated on the next recompute, so nothing is lost.
func Merge(base []models.Booking, pending []models.PendingCheckinEvent, scope models.Scope) []models.MergedBooking {
	merged := make([]models.MergedBooking, 0, len(base))
	index := make(map[string]int, len(base))
	for _, b := range base {
		index[b.ID] = len(merged)
		merged = append(merged, models.MergedBooking{Booking: b})
	}

	for _, event := range pending {
		if !event.MatchesScope(scope) {
			continue
		}
		i, ok := index[event.BookingID]
		if !ok {
			continue
		}
		room := event.RoomNumber
		merged[i].Status = models.StatusCheckedIn
		merged[i].RoomNumber = &room
		merged[i].PendingSync = true
	}

	sort.Slice(merged, func(i, j int) bool {
		return less(merged[i], merged[j])
	})
	return merged
}

// less is a total order: actionable bookings before non-actionable, then
// case-insensitive guest name, then booking id. The explicit tie-break keeps
// the result independent of the sort algorithm's stability.
func less(a, b models.MergedBooking) bool {
	if a.Actionable() != b.Actionable() {
		return a.Actionable()
	}
	an, bn := strings.ToLower(a.GuestName), strings.ToLower(b.GuestName)
	if an != bn {
		return an < bn
	}
	return a.ID < b.ID
}
