package normalize

import (
	"fmt"
	"strings"
	"time"

	"psnrwanda/internal/domain"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TrackedFromPhoneRecord maps one element of the track-by-phone listing
func TrackedFromPhoneRecord(obj Object) domain.TrackedBooking {
	id := obj.Int("id")
	fallbackRef := fmt.Sprintf("PSN-%d", id)

	tb := trackedBase(obj)
	tb.Reference = orDefault(obj.String("reference"), fallbackRef)
	tb.TrackingNumber = orDefault(obj.FirstString("trackingNumber", "tracking_number", "reference"), fallbackRef)
	tb.FullName = obj.String("fullName")
	tb.PhoneNumber = obj.String("phoneNumber")
	tb.ServiceName = orDefault(obj.String("serviceName"), fmt.Sprintf("Service #%d", tb.ServiceID))
	tb.CreatedAt = ParseTime(obj.String("createdAt"))
	tb.UpdatedAt = ParseTime(obj.String("updatedAt"))
	return tb
}

// TrackedFromCodeRecord maps the object returned by the tracking-number lookup.
// It accepts the legacy field names and falls back to the searched value
// for the tracking number.
func TrackedFromCodeRecord(obj Object, query string) domain.TrackedBooking {
	tb := trackedBase(obj)
	tb.Reference = orDefault(obj.String("reference"), fmt.Sprintf("PSN-%d", tb.ID))
	tb.TrackingNumber = orDefault(obj.FirstString("trackingNumber", "tracking_number"), query)
	tb.FullName = obj.FirstString("fullName", "clientName")
	tb.PhoneNumber = obj.FirstString("phoneNumber", "phone")
	tb.ServiceName = orDefault(obj.FirstString("serviceName", "service"), fmt.Sprintf("Service #%d", tb.ServiceID))
	tb.CreatedAt = ParseTime(obj.FirstString("createdAt", "createDate"))
	tb.UpdatedAt = ParseTime(obj.FirstString("updatedAt", "lastUpdated"))
	return tb
}

func trackedBase(obj Object) domain.TrackedBooking {
	docs := []domain.UploadedDocument{}
	if arr, ok := obj.Array("documents"); ok {
		docs = decodeDocuments(arr)
	}

	return domain.TrackedBooking{
		ID:        obj.Int("id"),
		Email:     obj.String("email"),
		ServiceID: obj.Int("serviceId"),
		Status:    domain.BookingStatus(orDefault(obj.String("status"), string(domain.StatusPending))),
		Notes:     obj.String("notes"),
		Documents: docs,
	}
}

// ParseTime accepts the timestamp layouts seen from the backend.
// Unparseable values yield the zero time, which templates render as a dash.
func ParseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
