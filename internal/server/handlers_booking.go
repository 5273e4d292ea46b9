package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"psnrwanda/internal/booking"
	"psnrwanda/internal/domain"
	"psnrwanda/internal/validation"
)

// Booking form actions, sent as the value of the pressed button
const (
	actionAddDocument    = "add_document"
	actionUpload         = "upload"
	actionRetryUpload    = "retry_upload"
	actionRemoveLocal    = "remove_local"
	actionRemoveUploaded = "remove_uploaded"
	actionSelectService  = "select_service"
	actionSubmit         = "submit"
)

// maxBookingBody leaves room for three full-size files plus the text fields
const maxBookingBody = domain.MaxDocuments*domain.MaxDocumentSize + 1<<20

// bookPageData feeds pages/book.html
type bookPageData struct {
	Draft          booking.View
	Services       []domain.Service
	Selected       *domain.Service
	Fallback       bool
	CanRetryUpload bool
	MaxDocuments   int
}

// submittedPageData feeds pages/book_submitted.html
type submittedPageData struct {
	TrackingNumber string
	TrackURL       string
	QRCode         template.URL
}

// handleBookPage renders the booking form. A submitted draft is discarded
// here, so every visit after a booking starts a fresh one.
func (s *Server) handleBookPage(w http.ResponseWriter, r *http.Request) {
	draft := getSession(r).Draft
	id, ok := parseID(r.URL.Query().Get("service"))

	switch {
	case draft.View().Submitted:
		draft.Reset(id)
	case ok:
		draft.SelectService(id)
	}
	s.renderBookForm(w, r, draft, nil, false)
}

// handleBookSubmitted shows the confirmation of the submitted draft until
// the visitor goes back to the form
func (s *Server) handleBookSubmitted(w http.ResponseWriter, r *http.Request) {
	view := getSession(r).Draft.View()
	if !view.Submitted {
		http.Redirect(w, r, "/book", http.StatusSeeOther)
		return
	}
	s.renderSubmitted(w, r, view.TrackingNumber)
}

// handleNewBooking discards the current draft and starts a fresh one
func (s *Server) handleNewBooking(w http.ResponseWriter, r *http.Request) {
	id, _ := parseID(r.URL.Query().Get("service"))
	getSession(r).Draft.Reset(id)
	http.Redirect(w, r, "/book", http.StatusSeeOther)
}

// handleBookAction applies one form action to the visitor's draft
func (s *Server) handleBookAction(w http.ResponseWriter, r *http.Request) {
	draft := getSession(r).Draft
	lang := s.requestLanguage(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxBookingBody)
	if err := r.ParseMultipartForm(8 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.renderBookForm(w, r, draft, errorFlash(s.catalog.T(lang, "booking.validation.maxFileSize")), false)
			return
		}
		http.Error(w, "Error processing form", http.StatusBadRequest)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	if draft.View().Submitted {
		http.Redirect(w, r, "/book/submitted", http.StatusSeeOther)
		return
	}

	serviceID, _ := parseID(r.FormValue("serviceId"))
	draft.Update(booking.Fields{
		FullName:    r.FormValue("fullName"),
		Email:       r.FormValue("email"),
		PhoneNumber: r.FormValue("phoneNumber"),
		ServiceID:   serviceID,
		Notes:       r.FormValue("notes"),
	})

	action, arg, _ := strings.Cut(r.FormValue("action"), ":")
	if arg == "" {
		arg = r.FormValue("id")
	}

	ctx := r.Context()
	var (
		flash *FlashMessage
		retry bool
	)

	switch action {
	case actionAddDocument:
		if err := s.addDocuments(draft, r.MultipartForm); err != nil {
			flash = errorFlash(s.errorText(lang, err))
		}

	case actionUpload, actionRetryUpload:
		var err error
		if action == actionUpload {
			_, err = s.booking.UploadDocuments(ctx, draft)
		} else {
			_, err = s.booking.RetryUpload(ctx, draft)
		}
		if errors.Is(err, booking.ErrStale) {
			http.Redirect(w, r, "/book", http.StatusSeeOther)
			return
		}
		if err != nil {
			flash = errorFlash(s.errorText(lang, err))
			retry = domain.IsRetryable(err)
		} else {
			flash = &FlashMessage{Type: "success", Message: s.catalog.T(lang, "booking.form.uploadSuccess")}
		}

	case actionRemoveLocal:
		draft.RemoveLocalFile(arg)

	case actionRemoveUploaded:
		if id, ok := parseID(arg); ok {
			draft.RemoveUploadedDocument(id)
		}

	case actionSelectService:
		// serviceId was applied with the other fields

	case actionSubmit:
		_, err := s.booking.Submit(ctx, draft)
		if err == nil {
			http.Redirect(w, r, "/book/submitted", http.StatusSeeOther)
			return
		}
		if errors.Is(err, booking.ErrStale) {
			http.Redirect(w, r, "/book", http.StatusSeeOther)
			return
		}
		flash = errorFlash(s.errorText(lang, err))

	default:
		s.logger.Debug("unknown booking action", zap.String("action", action))
	}

	s.renderBookForm(w, r, draft, flash, retry)
}

// addDocuments stages every file of the "document" field, stopping at the
// first one refused
func (s *Server) addDocuments(draft *booking.Draft, form *multipart.Form) error {
	var headers []*multipart.FileHeader
	if form != nil {
		headers = form.File["document"]
	}
	if len(headers) == 0 {
		return domain.NewError(domain.KindNothingToUpload, validation.MsgSelectFile)
	}

	for _, fh := range headers {
		file, err := readUpload(fh)
		if err != nil {
			return domain.WrapError(domain.KindUnexpected, domain.MsgUnexpected, err)
		}
		if _, err := draft.AddLocalFile(file); err != nil {
			return err
		}
	}
	return nil
}

// readUpload reads at most one byte past the size limit, enough for the
// staging model to refuse an oversized file
func readUpload(fh *multipart.FileHeader) (domain.FileUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.FileUpload{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, domain.MaxDocumentSize+1))
	if err != nil {
		return domain.FileUpload{}, fmt.Errorf("read upload: %w", err)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return domain.FileUpload{
		Name:        filepath.Base(fh.Filename),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func (s *Server) renderBookForm(w http.ResponseWriter, r *http.Request, draft *booking.Draft, flash *FlashMessage, retry bool) {
	ctx := r.Context()
	data := s.newPageData(r, "booking.title")

	services, fallback := s.booking.ActiveServices(ctx)
	view := draft.View()

	data.Flash = flash
	data.Data = bookPageData{
		Draft:          view,
		Services:       services,
		Selected:       s.booking.ServiceDetails(ctx, view.ServiceID, services),
		Fallback:       fallback,
		CanRetryUpload: retry && len(view.Local) > 0,
		MaxDocuments:   domain.MaxDocuments,
	}
	s.render(w, r, "pages/book.html", data)
}

// renderSubmitted shows the tracking number with a QR code linking to the
// tracking page
func (s *Server) renderSubmitted(w http.ResponseWriter, r *http.Request, trackingNumber string) {
	data := s.newPageData(r, "booking.success.title")
	trackURL := trackingURL(s.config.Site.PublicURL, trackingNumber)

	page := submittedPageData{
		TrackingNumber: trackingNumber,
		TrackURL:       trackURL,
	}
	png, err := qrcode.Encode(trackURL, qrcode.Medium, 256)
	if err != nil {
		s.logger.Warn("failed to generate QR code", zap.Error(err))
	} else {
		page.QRCode = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	}

	data.Data = page
	s.render(w, r, "pages/book_submitted.html", data)
}

// trackingURL is the absolute tracking-page link for a tracking number under
// the site's public address
func trackingURL(publicURL, trackingNumber string) string {
	q := url.Values{}
	q.Set("mode", "code")
	q.Set("q", trackingNumber)
	return strings.TrimRight(publicURL, "/") + "/track?" + q.Encode()
}

func errorFlash(message string) *FlashMessage {
	return &FlashMessage{Type: "error", Message: message}
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// validateRequest is the body of POST /api/validate
type validateRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// apiValidateField checks one booking form field as the visitor types
func (s *Server) apiValidateField(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	} else {
		req.Field = r.FormValue("field")
		req.Value = r.FormValue("value")
	}

	resp := map[string]interface{}{"field": req.Field, "valid": true}
	if ferr := validation.CheckField(req.Field, strings.TrimSpace(req.Value)); ferr != nil {
		resp["valid"] = false
		resp["message"] = s.errorText(s.requestLanguage(r), ferr)
	}
	writeJSON(w, http.StatusOK, resp)
}

// apiGetService returns the details shown next to the booking form
func (s *Server) apiGetService(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(getURLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid service id"})
		return
	}

	ctx := r.Context()
	services, _ := s.booking.ActiveServices(ctx)
	svc := s.booking.ServiceDetails(ctx, id, services)
	if svc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": s.catalog.T(s.requestLanguage(r), "booking.serviceDetails.noService"),
		})
		return
	}
	writeJSON(w, http.StatusOK, svc)
}
