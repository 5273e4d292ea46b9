// Package tracking looks up existing bookings by phone number or tracking code
package tracking

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"psnrwanda/internal/domain"
	"psnrwanda/internal/logger"
	"psnrwanda/internal/normalize"
	"psnrwanda/internal/repository"
)

// Mode selects how the visitor searches
type Mode string

// Search modes
const (
	ModeCode  Mode = "code"
	ModePhone Mode = "phone"
)

// ParseMode maps a query value to a mode; anything unknown searches by code
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(s))) == ModePhone {
		return ModePhone
	}
	return ModeCode
}

// Failure messages shown on the tracking page
const (
	MsgEmptyCode    = "Please enter a tracking number"
	MsgEmptyPhone   = "Please enter a phone number"
	MsgLookupFailed = "Failed to fetch booking information. Please try again later."
)

// Result is the outcome of one search
type Result struct {
	Mode     Mode
	Query    string
	Bookings []domain.TrackedBooking
	// Found is false when the search ran and matched nothing
	Found bool
	// Synthetic marks the development placeholder record
	Synthetic bool
}

// Options configures the lookup service
type Options struct {
	// DevFallback returns a placeholder booking when a code lookup fails.
	// Only ever enabled in debug mode.
	DevFallback bool
}

// Service runs tracking lookups
type Service struct {
	tracker     repository.BookingTracker
	devFallback bool
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new tracking Service
func NewService(tracker repository.BookingTracker, opts Options, log *zap.Logger) *Service {
	return &Service{
		tracker:     tracker,
		devFallback: opts.DevFallback,
		logger:      logger.OrNop(log),
		now:         time.Now,
	}
}

// Lookup searches by mode. An empty value is rejected before any backend
// call. A search that matched nothing is a result with Found false and no
// error.
func (s *Service) Lookup(ctx context.Context, mode Mode, value string) (Result, error) {
	value = strings.TrimSpace(value)
	result := Result{Mode: mode, Query: value}

	if value == "" {
		msg := MsgEmptyCode
		if mode == ModePhone {
			msg = MsgEmptyPhone
		}
		return result, domain.NewError(domain.KindEmptyQuery, msg)
	}

	if mode == ModePhone {
		return s.byPhone(ctx, result)
	}
	return s.byCode(ctx, result)
}

// byPhone reports a failed backend call as no bookings found
func (s *Service) byPhone(ctx context.Context, result Result) (Result, error) {
	records, err := s.tracker.ByPhone(ctx, result.Query)
	if err != nil {
		s.logger.Warn("track by phone failed, reporting no bookings", logger.Phone("phone", result.Query), zap.Error(err))
		return result, nil
	}

	for _, rec := range records {
		result.Bookings = append(result.Bookings, normalize.TrackedFromPhoneRecord(rec))
	}
	result.Found = len(result.Bookings) > 0

	s.logger.Debug("track by phone", logger.Phone("phone", result.Query), zap.Int("bookings", len(result.Bookings)))
	return result, nil
}

func (s *Service) byCode(ctx context.Context, result Result) (Result, error) {
	rec, err := s.tracker.ByCode(ctx, result.Query)
	if err == nil && rec != nil {
		result.Bookings = []domain.TrackedBooking{normalize.TrackedFromCodeRecord(rec, result.Query)}
		result.Found = true
		return result, nil
	}

	if s.devFallback {
		s.logger.Warn("tracking lookup failed, returning development placeholder",
			zap.String("code", result.Query),
			zap.Error(err),
		)
		result.Bookings = []domain.TrackedBooking{s.placeholder(result.Query)}
		result.Found = true
		result.Synthetic = true
		return result, nil
	}

	if err != nil {
		s.logger.Error("track by code failed", zap.String("code", result.Query), zap.Error(err))
		return result, domain.WrapError(domain.KindOf(err), MsgLookupFailed, err)
	}
	return result, nil
}

// placeholder builds the fixed development record for a code
func (s *Service) placeholder(code string) domain.TrackedBooking {
	now := s.now().UTC()
	return domain.TrackedBooking{
		ID:             12345,
		Reference:      "PSN-12345",
		TrackingNumber: code,
		FullName:       "Client Name",
		PhoneNumber:    "+250788123456",
		ServiceID:      1,
		ServiceName:    "Notary Services",
		Status:         domain.StatusInProgress,
		CreatedAt:      now,
		UpdatedAt:      now,
		Notes:          "Processing your request. Our team will contact you shortly.",
		Documents: []domain.UploadedDocument{
			{
				ID:       1,
				FileName: "contract.pdf",
				FilePath: "9a7b8c6d-5e4f-3g2h-1i0j-k9l8m7n6o5p4.pdf",
				FileType: "application/pdf",
				FileSize: 1024000,
			},
			{
				ID:       2,
				FileName: "identity.jpg",
				FilePath: "1a2b3c4d-5e6f-7g8h-9i0j-k1l2m3n4o5p6.jpg",
				FileType: "image/jpeg",
				FileSize: 250000,
			},
		},
	}
}

var statusKeys = map[domain.BookingStatus]string{
	domain.StatusPending:    "track.statuses.pending",
	domain.StatusInProgress: "track.statuses.inProgress",
	domain.StatusCompleted:  "track.statuses.completed",
	domain.StatusCancelled:  "track.statuses.cancelled",
}

// StatusKey returns the translation key of a known status, or "" when the
// status should be shown verbatim
func StatusKey(status domain.BookingStatus) string {
	return statusKeys[status]
}

// DocumentURL builds the download link of a stored document
func DocumentURL(apiBase, filePath string) string {
	return strings.TrimRight(apiBase, "/") + "/bookings/documents/" + strings.TrimLeft(filePath, "/")
}
