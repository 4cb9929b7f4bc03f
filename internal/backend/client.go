package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"frontdesk/internal/models"

	"github.com/google/uuid"
)

// Client is the HTTP client for the booking backend. Request errors are
// classified: transport failures wrap ErrNetwork, non-2xx responses become
// StatusError, so callers can apply the drain and connectivity policies.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientEvent is the drain payload for a locally queued mutation.
type ClientEvent struct {
	Type       string `json:"type"`
	BookingID  string `json:"booking_id"`
	RoomNumber int    `json:"room_number"`
	Today      string `json:"today"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Checkin performs an online check-in for a booking.
func (c *Client) Checkin(ctx context.Context, bookingID, today string) error {
	endpoint := fmt.Sprintf("%s/bookings/%s/checkin?today=%s",
		c.baseURL, url.PathEscape(bookingID), url.QueryEscape(today))
	return c.doPost(ctx, endpoint, nil, nil)
}

// Checkout checks a guest out. Requires connectivity; there is no offline path.
func (c *Client) Checkout(ctx context.Context, bookingID string) error {
	endpoint := fmt.Sprintf("%s/bookings/%s/checkout", c.baseURL, url.PathEscape(bookingID))
	return c.doPost(ctx, endpoint, nil, nil)
}

// Cancel cancels a booking. Requires connectivity.
func (c *Client) Cancel(ctx context.Context, bookingID string) error {
	endpoint := fmt.Sprintf("%s/bookings/%s/cancel", c.baseURL, url.PathEscape(bookingID))
	return c.doPost(ctx, endpoint, nil, nil)
}

// SendClientEvent delivers one queued offline check-in to the backend.
func (c *Client) SendClientEvent(ctx context.Context, event models.PendingCheckinEvent) error {
	endpoint := fmt.Sprintf("%s/client-events", c.baseURL)
	body := ClientEvent{
		Type:       "offline_checkin",
		BookingID:  event.BookingID,
		RoomNumber: event.RoomNumber,
		Today:      event.Today,
	}
	return c.doPost(ctx, endpoint, body, nil)
}

// FetchBookings reads the current booking dataset for a hotel/day scope.
func (c *Client) FetchBookings(ctx context.Context, hotelID, date string) ([]models.Booking, error) {
	endpoint := fmt.Sprintf("%s/hotels/%s/bookings/shape?date=%s",
		c.baseURL, url.PathEscape(hotelID), url.QueryEscape(date))
	var bookings []models.Booking
	if err := c.doGet(ctx, endpoint, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// ListHotels returns all hotels. Pass-through read, out of engine scope.
func (c *Client) ListHotels(ctx context.Context) ([]models.Hotel, error) {
	endpoint := fmt.Sprintf("%s/hotels", c.baseURL)
	var hotels []models.Hotel
	if err := c.doGet(ctx, endpoint, &hotels); err != nil {
		return nil, err
	}
	return hotels, nil
}

// GetHotel returns one hotel by id.
func (c *Client) GetHotel(ctx context.Context, hotelID string) (*models.Hotel, error) {
	endpoint := fmt.Sprintf("%s/hotels/%s", c.baseURL, url.PathEscape(hotelID))
	var hotel models.Hotel
	if err := c.doGet(ctx, endpoint, &hotel); err != nil {
		return nil, err
	}
	return &hotel, nil
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) doPost(ctx context.Context, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(data))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Delivery is at-least-once; the id lets the backend drop duplicates.
	req.Header.Set("X-Request-Id", uuid.NewString())
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
