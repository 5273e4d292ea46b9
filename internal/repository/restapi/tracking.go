package restapi

import (
	"context"
	"fmt"
	"net/http"

	"psnrwanda/internal/domain"
	"psnrwanda/internal/normalize"
)

// BookingTracker implements repository.BookingTracker
type BookingTracker struct {
	client *Client
}

// NewBookingTracker creates a new BookingTracker
func NewBookingTracker(client *Client) *BookingTracker {
	return &BookingTracker{client: client}
}

// ByPhone lists the bookings made with a phone number. Anything other than
// {success: true, bookings: [...]} counts as no bookings.
func (t *BookingTracker) ByPhone(ctx context.Context, phone string) ([]normalize.Object, error) {
	resp, err := t.client.get(ctx, "bookings", "public", "track-by-phone", phone)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNotFound {
		return nil, nil
	}
	if !resp.ok() {
		return nil, domain.NewError(domain.KindServerRejected, fmt.Sprintf("track by phone returned status %d", resp.status))
	}

	value, err := normalize.ParseJSON(resp.body)
	if err != nil {
		return nil, domain.WrapError(domain.KindParseFailure, "Failed to parse tracking response", err)
	}

	obj, ok := normalize.AsObject(value)
	if !ok || !obj.Truthy("success") {
		return nil, nil
	}
	items, _ := obj.Array("bookings")

	records := make([]normalize.Object, 0, len(items))
	for _, item := range items {
		if rec, ok := normalize.AsObject(item); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// ByCode fetches the booking carrying a tracking number, or nil when none does
func (t *BookingTracker) ByCode(ctx context.Context, code string) (normalize.Object, error) {
	resp, err := t.client.get(ctx, "bookings", "track", "number", code)
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNotFound {
		return nil, nil
	}
	if !resp.ok() {
		return nil, domain.NewError(domain.KindServerRejected, fmt.Sprintf("track by number returned status %d", resp.status))
	}

	value, err := normalize.ParseJSON(resp.body)
	if err != nil {
		return nil, domain.WrapError(domain.KindParseFailure, "Failed to parse tracking response", err)
	}
	if value == nil {
		return nil, nil
	}

	obj, ok := normalize.AsObject(value)
	if !ok {
		return nil, domain.NewError(domain.KindParseFailure, "Failed to parse tracking response")
	}
	return obj, nil
}
