package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strconv"

	"go.uber.org/zap"

	"psnrwanda/internal/domain"
	"psnrwanda/internal/logger"
	"psnrwanda/internal/normalize"
)

// BookingCreator implements repository.BookingCreator
type BookingCreator struct {
	client *Client
}

// NewBookingCreator creates a new BookingCreator
func NewBookingCreator(client *Client) *BookingCreator {
	return &BookingCreator{client: client}
}

// Create posts the booking. Bookings that reference uploaded documents go to
// the multipart endpoint; all others are sent as JSON.
func (b *BookingCreator) Create(ctx context.Context, payload domain.BookingPayload) (domain.BookingResult, error) {
	var (
		resp response
		err  error
	)

	if len(payload.DocumentIDs) > 0 {
		var body bytes.Buffer
		contentType, werr := writeBookingForm(&body, payload)
		if werr != nil {
			return domain.BookingResult{}, fmt.Errorf("failed to build booking form: %w", werr)
		}
		resp, err = b.client.post(ctx, b.client.httpClient, contentType, &body, "bookings", "publics")
	} else {
		data, merr := json.Marshal(payload)
		if merr != nil {
			return domain.BookingResult{}, fmt.Errorf("failed to encode booking: %w", merr)
		}
		resp, err = b.client.post(ctx, b.client.httpClient, "application/json", bytes.NewReader(data), "bookings", "public")
	}
	if err != nil {
		return domain.BookingResult{}, err
	}

	result, err := normalize.DecodeBookingResponse(resp.status, resp.body)
	if err != nil {
		b.client.logger.Warn("unrecognized booking response",
			zap.Int("status", resp.status),
			logger.Phone("phone", payload.PhoneNumber),
		)
		return domain.BookingResult{}, err
	}
	return result, nil
}

// writeBookingForm encodes the booking fields with indexed document ids
func writeBookingForm(buf *bytes.Buffer, payload domain.BookingPayload) (string, error) {
	mw := multipart.NewWriter(buf)

	fields := [][2]string{
		{"serviceId", strconv.FormatInt(payload.ServiceID, 10)},
		{"phoneNumber", payload.PhoneNumber},
	}
	if payload.FullName != "" {
		fields = append(fields, [2]string{"fullName", payload.FullName})
	}
	if payload.Email != "" {
		fields = append(fields, [2]string{"email", payload.Email})
	}
	if payload.Notes != "" {
		fields = append(fields, [2]string{"notes", payload.Notes})
	}
	for i, id := range payload.DocumentIDs {
		fields = append(fields, [2]string{fmt.Sprintf("documentIds[%d]", i), id})
	}

	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	return mw.FormDataContentType(), nil
}
