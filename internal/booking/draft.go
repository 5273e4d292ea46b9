package booking

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"psnrwanda/internal/domain"
	"psnrwanda/internal/validation"
)

// ErrStale is returned when a draft was reset while a backend call for it
// was still running. The call's result has been discarded.
var ErrStale = errors.New("booking: draft was reset while a request was in flight")

// Fields are the editable text fields of the booking form
type Fields struct {
	FullName    string
	Email       string
	PhoneNumber string
	ServiceID   int64
	Notes       string
}

// View is a consistent snapshot of a draft for rendering
type View struct {
	Fields
	Local          []domain.LocalDocument
	Uploaded       []domain.UploadedDocument
	Submitting     bool
	Uploading      bool
	Submitted      bool
	TrackingNumber string
}

// CanAddDocument reports whether another file may be staged
func (v View) CanAddDocument() bool {
	return len(v.Local)+len(v.Uploaded) < domain.MaxDocuments
}

// Draft is one visitor's in-progress booking. It allows one in-flight
// submission and one in-flight upload at a time.
type Draft struct {
	mu sync.Mutex

	fields  Fields
	staging Staging

	submitting bool
	uploading  bool
	generation uint64

	submitted      bool
	trackingNumber string
}

// NewDraft creates an empty draft, optionally preselecting a service
func NewDraft(serviceID int64) *Draft {
	d := &Draft{}
	if serviceID > 0 {
		d.fields.ServiceID = serviceID
	}
	return d
}

// View returns a snapshot of the draft
func (d *Draft) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()

	return View{
		Fields:         d.fields,
		Local:          d.staging.Local(),
		Uploaded:       d.staging.Uploaded(),
		Submitting:     d.submitting,
		Uploading:      d.uploading,
		Submitted:      d.submitted,
		TrackingNumber: d.trackingNumber,
	}
}

// Update replaces the text fields. A submitted draft is no longer editable.
func (d *Draft) Update(f Fields) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.submitted {
		return
	}
	d.fields = trimFields(f)
}

// SelectService changes only the selected service
func (d *Draft) SelectService(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.submitted {
		d.fields.ServiceID = id
	}
}

// AddLocalFile stages a file
func (d *Draft) AddLocalFile(f domain.FileUpload) (domain.LocalDocument, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.submitted {
		return domain.LocalDocument{}, domain.NewError(domain.KindBusy, domain.MsgUnexpected)
	}
	return d.staging.AddLocalFile(f)
}

// RemoveLocalFile drops a staged file
func (d *Draft) RemoveLocalFile(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.staging.RemoveLocalFile(id)
}

// RemoveUploadedDocument forgets a confirmed document
func (d *Draft) RemoveUploadedDocument(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.staging.RemoveUploadedDocument(id)
}

// Reset empties the draft. Results of calls still in flight are discarded.
func (d *Draft) Reset(serviceID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fields = Fields{}
	if serviceID > 0 {
		d.fields.ServiceID = serviceID
	}
	d.staging.Reset()
	d.submitting = false
	d.uploading = false
	d.submitted = false
	d.trackingNumber = ""
	d.generation++
}

// beginSubmit validates the draft in gate order and marks it as submitting
func (d *Draft) beginSubmit() (domain.BookingPayload, uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.submitting || d.submitted {
		return domain.BookingPayload{}, 0, domain.NewError(domain.KindBusy, "A booking is already being submitted.")
	}
	if err := validateFields(d.fields); err != nil {
		return domain.BookingPayload{}, 0, err
	}

	payload := domain.BookingPayload{
		FullName:    d.fields.FullName,
		Email:       d.fields.Email,
		PhoneNumber: d.fields.PhoneNumber,
		ServiceID:   d.fields.ServiceID,
		Notes:       d.fields.Notes,
	}
	for _, doc := range d.staging.uploaded {
		payload.DocumentIDs = append(payload.DocumentIDs, strconv.FormatInt(doc.ID, 10))
	}

	d.submitting = true
	return payload, d.generation, nil
}

// finishSubmit records the outcome of a submission started at gen.
// A successful result consumes the draft.
func (d *Draft) finishSubmit(gen uint64, trackingNumber string, ok bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.generation {
		return ErrStale
	}
	d.submitting = false
	if ok {
		d.submitted = true
		d.trackingNumber = trackingNumber
	}
	return nil
}

// beginUpload snapshots the local files and marks the draft as uploading
func (d *Draft) beginUpload() ([]string, []domain.FileUpload, uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.uploading {
		return nil, nil, 0, domain.NewError(domain.KindBusy, "Documents are already being uploaded.")
	}
	if len(d.staging.local) == 0 {
		return nil, nil, 0, domain.NewError(domain.KindNothingToUpload, validation.MsgSelectFile)
	}

	ids := make([]string, 0, len(d.staging.local))
	files := make([]domain.FileUpload, 0, len(d.staging.local))
	for _, doc := range d.staging.local {
		ids = append(ids, doc.ID)
		files = append(files, doc.File)
	}

	d.uploading = true
	return ids, files, d.generation, nil
}

// finishUpload commits the documents returned for an upload started at gen;
// docs is nil when the upload failed
func (d *Draft) finishUpload(gen uint64, sentIDs []string, docs []domain.UploadedDocument) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.generation {
		return ErrStale
	}
	d.uploading = false
	if docs == nil {
		return nil
	}
	return d.staging.CommitUpload(sentIDs, docs)
}

func trimFields(f Fields) Fields {
	f.FullName = strings.TrimSpace(f.FullName)
	f.Email = strings.TrimSpace(f.Email)
	f.PhoneNumber = strings.TrimSpace(f.PhoneNumber)
	f.Notes = strings.TrimSpace(f.Notes)
	return f
}

// validateFields applies the submission gates in order; the first failure wins
func validateFields(f Fields) *domain.Error {
	if f.PhoneNumber == "" {
		return domain.NewError(domain.KindMissingPhone, validation.MsgRequiredPhone)
	}
	if !validation.IsValidPhone(f.PhoneNumber) {
		return domain.NewError(domain.KindInvalidPhone, validation.MsgInvalidPhone)
	}
	if f.Email != "" && !validation.IsValidEmail(f.Email) {
		return domain.NewError(domain.KindInvalidEmail, validation.MsgInvalidEmail)
	}
	if f.FullName != "" && !validation.IsValidName(f.FullName) {
		return domain.NewError(domain.KindInvalidName, validation.MsgInvalidName)
	}
	if f.ServiceID <= 0 {
		return domain.NewError(domain.KindMissingService, validation.MsgSelectService)
	}
	return nil
}
