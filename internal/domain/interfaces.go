package domain

import (
	"context"

	"frontdesk/internal/models"
)

type BackendClient interface {
	Checkin(ctx context.Context, bookingID, today string) error
	Checkout(ctx context.Context, bookingID string) error
	Cancel(ctx context.Context, bookingID string) error
	SendClientEvent(ctx context.Context, event models.PendingCheckinEvent) error
	FetchBookings(ctx context.Context, hotelID, date string) ([]models.Booking, error)
	ListHotels(ctx context.Context) ([]models.Hotel, error)
	GetHotel(ctx context.Context, hotelID string) (*models.Hotel, error)
}

type ConnectivityMonitor interface {
	IsOffline() bool
	SetOffline(offline bool)
	ReportTransportFailure()
	ReportTransportSuccess()
	ReportHostDown()
	ReportHostUp()
}

type PendingQueue interface {
	Append(ctx context.Context, event models.PendingCheckinEvent) error
	Pending() []models.PendingCheckinEvent
	Len() int
}

type SnapshotCache interface {
	Load(ctx context.Context, hotelID string) ([]models.Booking, error)
	Save(ctx context.Context, hotelID string, bookings []models.Booking) error
}

type LiveFeed interface {
	SetScope(scope models.Scope)
	Connected() bool
	Reconnect()
	OnDeliver(fn func(scope models.Scope, bookings []models.Booking))
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type DeskService interface {
	SetScope(ctx context.Context, hotelID, date string) error
	View() (models.Scope, []models.MergedBooking, bool)
	Checkin(ctx context.Context, bookingID string, roomNumber int) error
	Checkout(ctx context.Context, bookingID string) error
	Cancel(ctx context.Context, bookingID string) error
	ListHotels(ctx context.Context) ([]models.Hotel, error)
	GetHotel(ctx context.Context, hotelID string) (*models.Hotel, error)
	Status() models.DeskStatus
}
