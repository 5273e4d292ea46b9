// Package domain defines core business entities
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Document limits for one booking draft
const (
	MaxDocuments    = 3
	MaxDocumentSize = 10 * 1024 * 1024 // 10 MiB
)

// Service represents a service offered by the company
type Service struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	IsActive       bool     `json:"isActive"`
	ImageURL       string   `json:"imageUrl"`
	BulletPoints   []string `json:"bulletPoints"`
	PriceInfo      string   `json:"priceInfo,omitempty"`
	TurnaroundTime string   `json:"turnaroundTime,omitempty"`
	AdditionalInfo string   `json:"additionalInfo,omitempty"`
	CTAText        string   `json:"ctaText,omitempty"`
}

// FileUpload is a file selected by the visitor, held in memory until uploaded
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the payload size in bytes
func (f FileUpload) Size() int64 {
	return int64(len(f.Data))
}

// LocalDocument is a staged file that has not been confirmed by the server yet
type LocalDocument struct {
	ID        string
	File      FileUpload
	Name      string
	SizeLabel string
	MimeType  string
}

// UploadedDocument is a document stored by the backend
type UploadedDocument struct {
	ID       int64  `json:"id"`
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
}

// Valid reports whether the server returned a usable document record
func (d UploadedDocument) Valid() bool {
	return d.ID != 0 && d.FileName != "" && d.FilePath != "" && d.FileType != "" && d.FileSize > 0
}

// BookingPayload is what gets sent to the booking-creation endpoint
type BookingPayload struct {
	FullName    string   `json:"fullName,omitempty"`
	Email       string   `json:"email,omitempty"`
	PhoneNumber string   `json:"phoneNumber"`
	ServiceID   int64    `json:"serviceId"`
	Notes       string   `json:"notes,omitempty"`
	DocumentIDs []string `json:"documentIds,omitempty"`
}

// BookingResult is the canonical outcome of a booking creation call
type BookingResult struct {
	TrackingNumber string `json:"trackingNumber"`
	Success        bool   `json:"success"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
}

// BookingStatus is the lifecycle status reported by the backend
type BookingStatus string

// Booking statuses
const (
	StatusPending    BookingStatus = "PENDING"
	StatusInProgress BookingStatus = "IN_PROGRESS"
	StatusCompleted  BookingStatus = "COMPLETED"
	StatusCancelled  BookingStatus = "CANCELLED"
)

// Known reports whether the status is one of the four documented values
func (s BookingStatus) Known() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// TrackedBooking is the canonical view of a booking on the tracking page
type TrackedBooking struct {
	ID             int64              `json:"id"`
	Reference      string             `json:"reference"`
	TrackingNumber string             `json:"trackingNumber"`
	FullName       string             `json:"fullName,omitempty"`
	Email          string             `json:"email,omitempty"`
	PhoneNumber    string             `json:"phoneNumber"`
	ServiceID      int64              `json:"serviceId"`
	ServiceName    string             `json:"serviceName"`
	Status         BookingStatus      `json:"status"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
	Notes          string             `json:"notes,omitempty"`
	Documents      []UploadedDocument `json:"documents"`
}

// FormatFileSize renders a byte count the way the booking form shows it (1.5 MB, 0 Bytes)
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	units := []string{"Bytes", "KB", "MB", "GB"}
	value := float64(bytes)
	i := 0
	for value >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}

	s := strconv.FormatFloat(value, 'f', 2, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return fmt.Sprintf("%s %s", s, units[i])
}
