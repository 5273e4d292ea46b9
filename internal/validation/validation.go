// Package validation holds the form-field predicates used by the booking form.
package validation

import (
	"regexp"

	"psnrwanda/internal/domain"
)

var (
	// Rwandan numbers: 07[2389]xxxxxxx, optionally with +250 / 00250 instead of the leading 0.
	rwandaPhoneRegex = regexp.MustCompile(`^(?:(?:\+|00)250|0)?7[2389]\d{7}$`)
	// Generic international: + or 00, country code not starting with 0, up to 15 digits.
	internationalPhoneRegex = regexp.MustCompile(`^(?:\+|00)[1-9]\d{1,14}$`)
	emailRegex              = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	nameRegex               = regexp.MustCompile(`^[A-Za-z\s\-']+$`)
)

// Field names accepted by CheckField
const (
	FieldPhone = "phoneNumber"
	FieldEmail = "email"
	FieldName  = "fullName"
)

// Field error messages
const (
	MsgRequiredPhone = "Phone number is required to process your booking."
	MsgInvalidPhone  = "Please enter a valid phone number (e.g., +250788123456 or 0788123456)."
	MsgInvalidEmail  = "Please enter a valid email address."
	MsgInvalidName   = "Please enter a valid name without numbers or special characters."
	MsgSelectService = "Please select a service."
	MsgMaxFileSize   = "File size exceeds 10MB. Please upload a smaller file."
	MsgMaxDocuments  = "You can only upload up to 3 documents. Please remove a document before adding another."
	MsgSelectFile    = "Please select at least one document to upload."
)

// IsValidPhone accepts Rwandan local/international formats or a generic international number
func IsValidPhone(s string) bool {
	return rwandaPhoneRegex.MatchString(s) || internationalPhoneRegex.MatchString(s)
}

// IsValidEmail checks for a single @, a dotted domain and a 2+ letter TLD
func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// IsValidName allows letters, whitespace, hyphens and apostrophes
func IsValidName(s string) bool {
	return nameRegex.MatchString(s)
}

// IsValidFileSize checks the per-file upload limit
func IsValidFileSize(bytes int64) bool {
	return bytes <= domain.MaxDocumentSize
}

// CheckField validates a single form field as the visitor edits it.
// Optional fields are valid when empty; unknown fields are always valid.
func CheckField(field, value string) *domain.Error {
	switch field {
	case FieldPhone:
		if value == "" {
			return domain.NewError(domain.KindMissingPhone, MsgRequiredPhone)
		}
		if !IsValidPhone(value) {
			return domain.NewError(domain.KindInvalidPhone, MsgInvalidPhone)
		}
	case FieldEmail:
		if value != "" && !IsValidEmail(value) {
			return domain.NewError(domain.KindInvalidEmail, MsgInvalidEmail)
		}
	case FieldName:
		if value != "" && !IsValidName(value) {
			return domain.NewError(domain.KindInvalidName, MsgInvalidName)
		}
	}
	return nil
}
