// Package repository defines the collaborators the flows depend on
package repository

import (
	"context"

	"psnrwanda/internal/domain"
	"psnrwanda/internal/normalize"
)

// ServiceCatalog reads the services offered by the backend
type ServiceCatalog interface {
	List(ctx context.Context) ([]domain.Service, error)
	// GetByID returns nil when the backend does not know the service
	GetByID(ctx context.Context, id int64) (*domain.Service, error)
}

// BookingCreator creates bookings on the backend. A non-nil error means no
// usable answer was obtained; a server refusal is a result with Success false.
type BookingCreator interface {
	Create(ctx context.Context, payload domain.BookingPayload) (domain.BookingResult, error)
}

// DocumentUploader stores document files on the backend
type DocumentUploader interface {
	Upload(ctx context.Context, files []domain.FileUpload) ([]domain.UploadedDocument, error)
	UploadAlternate(ctx context.Context, files []domain.FileUpload) ([]domain.UploadedDocument, error)
}

// BookingTracker looks up bookings. Records are returned as loose objects and
// mapped by the tracking flow.
type BookingTracker interface {
	ByPhone(ctx context.Context, phone string) ([]normalize.Object, error)
	// ByCode returns nil when no booking carries the code
	ByCode(ctx context.Context, code string) (normalize.Object, error)
}

// SettingsRepository handles locally persisted preferences
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Collaborators bundles the backend collaborators
type Collaborators struct {
	Services  ServiceCatalog
	Bookings  BookingCreator
	Documents DocumentUploader
	Tracker   BookingTracker
	Settings  SettingsRepository
}
