package normalize

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"psnrwanda/internal/domain"
)

// TrackingPrefix is prepended to synthesized and bare-numeric tracking numbers
const TrackingPrefix = "TRK-"

var numericRegex = regexp.MustCompile(`^\s*[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?\s*$`)

// randomDigits returns a five-digit number for synthesized tracking numbers
var randomDigits = func() int {
	return 10000 + rand.Intn(90000)
}

// DecodeBookingResponse interprets a booking-creation response.
// Error statuses become a failed result carrying the server message; a
// success status with a non-object body is a ParseFailure.
func DecodeBookingResponse(status int, body []byte) (domain.BookingResult, error) {
	value, err := ParseJSON(body)

	var obj Object
	isObj := false
	if err == nil {
		obj, isObj = AsObject(value)
	}

	if !isSuccess(status) {
		msg := ""
		if isObj {
			msg = obj.String("message")
		}
		if msg == "" {
			msg = "Failed to create booking"
		}
		return domain.BookingResult{Success: false, ErrorMessage: msg}, nil
	}

	if err != nil {
		return domain.BookingResult{}, domain.WrapError(domain.KindParseFailure, domain.MsgBookingUnparsed, err)
	}
	if !isObj {
		return domain.BookingResult{}, domain.NewError(domain.KindParseFailure, domain.MsgBookingUnparsed)
	}

	return DecodeBookingObject(obj), nil
}

// DecodeBookingObject maps a flat envelope or a nested {booking} object
func DecodeBookingObject(obj Object) domain.BookingResult {
	if obj.Truthy("booking") || obj.Truthy("success") {
		return domain.BookingResult{
			Success:        true,
			TrackingNumber: ResolveTrackingNumber(obj),
		}
	}

	msg := obj.FirstString("error", "errorMessage", "message")
	if msg == "" {
		msg = domain.MsgBookingFailed
	}
	return domain.BookingResult{Success: false, ErrorMessage: msg}
}

// Canonical re-normalizes an already decoded result; applying it twice is a no-op
func Canonical(result domain.BookingResult) domain.BookingResult {
	if !result.Success {
		if result.ErrorMessage == "" {
			result.ErrorMessage = domain.MsgBookingFailed
		}
		result.TrackingNumber = ""
		return result
	}

	result.ErrorMessage = ""
	if result.TrackingNumber == "" {
		result.TrackingNumber = SynthesizeTrackingNumber()
	} else {
		result.TrackingNumber = PrefixTrackingNumber(result.TrackingNumber)
	}
	return result
}

// ResolveTrackingNumber applies the field precedence:
// booking.trackingNumber, trackingNumber, tracking_number, reference, synthesized
func ResolveTrackingNumber(obj Object) string {
	var raw string
	if booking, ok := obj.Object("booking"); ok {
		raw = booking.String("trackingNumber")
	}
	if raw == "" {
		raw = obj.FirstString("trackingNumber", "tracking_number", "reference")
	}
	if raw == "" {
		return SynthesizeTrackingNumber()
	}
	return PrefixTrackingNumber(raw)
}

// PrefixTrackingNumber prefixes bare numeric values that carry no separator
func PrefixTrackingNumber(value string) string {
	if strings.Contains(value, "-") {
		return value
	}
	if numericRegex.MatchString(value) {
		return TrackingPrefix + value
	}
	return value
}

// SynthesizeTrackingNumber creates a client-side tracking number when the
// server did not provide one
func SynthesizeTrackingNumber() string {
	return TrackingPrefix + strconv.Itoa(randomDigits())
}
