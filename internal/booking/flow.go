package booking

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"psnrwanda/internal/domain"
	"psnrwanda/internal/logger"
	"psnrwanda/internal/normalize"
	"psnrwanda/internal/repository"
)

// uploadStrategy is one step of the upload fallback chain
type uploadStrategy struct {
	name   string
	upload func(ctx context.Context, files []domain.FileUpload) ([]domain.UploadedDocument, error)
}

// Flow runs the booking operations against the backend collaborators
type Flow struct {
	services  repository.ServiceCatalog
	bookings  repository.BookingCreator
	documents repository.DocumentUploader
	logger    *zap.Logger
}

// NewFlow creates a new Flow
func NewFlow(c repository.Collaborators, log *zap.Logger) *Flow {
	return &Flow{
		services:  c.Services,
		bookings:  c.Bookings,
		documents: c.Documents,
		logger:    logger.OrNop(log),
	}
}

// Submit validates the draft and creates the booking. Validation failures
// never reach the backend. On success the draft is consumed and holds the
// tracking number; on any failure it stays editable and intact.
func (f *Flow) Submit(ctx context.Context, d *Draft) (domain.BookingResult, error) {
	payload, gen, err := d.beginSubmit()
	if err != nil {
		return domain.BookingResult{}, err
	}

	result, err := f.bookings.Create(ctx, payload)
	if err != nil {
		if ferr := d.finishSubmit(gen, "", false); ferr != nil {
			return domain.BookingResult{}, ferr
		}
		return domain.BookingResult{}, f.submitError(err, payload)
	}

	if !result.Success {
		if ferr := d.finishSubmit(gen, "", false); ferr != nil {
			return domain.BookingResult{}, ferr
		}
		f.logger.Warn("booking rejected",
			zap.String("message", result.ErrorMessage),
			logger.Phone("phone", payload.PhoneNumber),
		)
		msg := result.ErrorMessage
		if msg == "" {
			msg = domain.MsgBookingFailed
		}
		return domain.BookingResult{}, domain.NewError(domain.KindServerRejected, msg)
	}

	result = normalize.Canonical(result)
	if err := d.finishSubmit(gen, result.TrackingNumber, true); err != nil {
		f.logger.Warn("discarding booking result for reset draft", zap.String("tracking_number", result.TrackingNumber))
		return domain.BookingResult{}, err
	}

	f.logger.Info("booking created",
		zap.String("tracking_number", result.TrackingNumber),
		zap.Int64("service_id", payload.ServiceID),
		zap.Int("documents", len(payload.DocumentIDs)),
		logger.Phone("phone", payload.PhoneNumber),
	)
	return result, nil
}

// submitError maps a collaborator failure to the error shown on the form
func (f *Flow) submitError(err error, payload domain.BookingPayload) error {
	f.logger.Error("booking request failed", zap.Error(err), logger.Phone("phone", payload.PhoneNumber))

	var de *domain.Error
	if !errors.As(err, &de) {
		return domain.WrapError(domain.KindUnexpected, domain.MsgUnexpected, err)
	}
	switch de.Kind {
	case domain.KindTransportFailure, domain.KindServerRejected:
		return de
	case domain.KindParseFailure:
		return domain.WrapError(domain.KindServerRejected, domain.MsgBookingFailed, err)
	}
	return domain.WrapError(domain.KindUnexpected, domain.MsgUnexpected, err)
}

// UploadDocuments uploads every staged local file, falling back to the
// alternate endpoint when the primary answer is unusable
func (f *Flow) UploadDocuments(ctx context.Context, d *Draft) ([]domain.UploadedDocument, error) {
	return f.upload(ctx, d, []uploadStrategy{
		{name: "primary", upload: f.documents.Upload},
		{name: "alternate", upload: f.documents.UploadAlternate},
	})
}

// RetryUpload is the manual retry offered after the chain was exhausted;
// it goes straight to the alternate endpoint
func (f *Flow) RetryUpload(ctx context.Context, d *Draft) ([]domain.UploadedDocument, error) {
	return f.upload(ctx, d, []uploadStrategy{
		{name: "alternate", upload: f.documents.UploadAlternate},
	})
}

func (f *Flow) upload(ctx context.Context, d *Draft, chain []uploadStrategy) ([]domain.UploadedDocument, error) {
	ids, files, gen, err := d.beginUpload()
	if err != nil {
		return nil, err
	}

	docs, err := f.runChain(ctx, files, chain)
	if err != nil {
		if ferr := d.finishUpload(gen, ids, nil); ferr != nil {
			return nil, ferr
		}
		return nil, err
	}

	if err := d.finishUpload(gen, ids, docs); err != nil {
		f.logger.Warn("uploaded documents not committed", zap.Int("documents", len(docs)), zap.Error(err))
		return nil, err
	}

	f.logger.Info("documents uploaded", zap.Int("documents", len(docs)))
	return docs, nil
}

// runChain tries each strategy in order. A ParseFailure or an unusable
// result moves on to the next strategy; any other error ends the chain.
// When the last strategy fails the error is marked for a manual retry.
func (f *Flow) runChain(ctx context.Context, files []domain.FileUpload, chain []uploadStrategy) ([]domain.UploadedDocument, error) {
	for i, s := range chain {
		last := i == len(chain)-1

		docs, err := s.upload(ctx, files)
		if err == nil && ValidDocuments(docs) {
			return docs, nil
		}
		if err == nil {
			err = domain.NewError(domain.KindParseFailure, domain.MsgUploadUnusable)
		}

		if last {
			f.logger.Error("document upload failed", zap.String("strategy", s.name), zap.Error(err))
			return nil, retryable(err)
		}
		if domain.KindOf(err) != domain.KindParseFailure {
			f.logger.Error("document upload failed", zap.String("strategy", s.name), zap.Error(err))
			return nil, err
		}
		f.logger.Warn("upload response unusable, trying next endpoint",
			zap.String("strategy", s.name),
			zap.String("next", chain[i+1].name),
			zap.Error(err),
		)
	}
	return nil, domain.NewError(domain.KindNothingToUpload, domain.MsgUploadFailed)
}

func retryable(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return domain.WrapError(de.Kind, de.Message, de.Err).WithRetry()
	}
	return domain.WrapError(domain.KindUnexpected, domain.MsgUnexpected, err).WithRetry()
}

// ServiceDetails resolves the service shown next to the form. Backend errors
// fall back to the already loaded list; nil means no service is selected.
func (f *Flow) ServiceDetails(ctx context.Context, id int64, loaded []domain.Service) *domain.Service {
	if id <= 0 {
		return nil
	}

	svc, err := f.services.GetByID(ctx, id)
	if err != nil {
		f.logger.Warn("service lookup failed, using loaded list", zap.Int64("service_id", id), zap.Error(err))
	}
	if svc != nil {
		return svc
	}
	return FindService(loaded, id)
}

// ActiveServices lists the services open for booking. When the backend has
// none (or cannot be reached) the built-in catalogue is returned with
// fallback set.
func (f *Flow) ActiveServices(ctx context.Context) (services []domain.Service, fallback bool) {
	all, err := f.services.List(ctx)
	if err != nil {
		f.logger.Warn("service list unavailable, using built-in catalogue", zap.Error(err))
		return FallbackCatalog(), true
	}
	if len(all) == 0 {
		return FallbackCatalog(), true
	}

	active := make([]domain.Service, 0, len(all))
	for _, s := range all {
		if s.IsActive {
			active = append(active, s)
		}
	}
	return active, false
}
