package server

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"psnrwanda/internal/config"
	"psnrwanda/internal/domain"
	"psnrwanda/internal/domain/notifications"
	"psnrwanda/internal/i18n"
	"psnrwanda/internal/validation"
)

// PageData holds common data for all page templates
type PageData struct {
	Title     string
	Lang      i18n.Language
	Languages []i18n.Language
	Config    *config.Config
	Path      string
	Year      int
	Flash     *FlashMessage
	Data      interface{}
}

// FlashMessage represents a flash message
type FlashMessage struct {
	Type    string // success, error, warning, info
	Message string
}

// newPageData creates a new PageData with common fields; titleKey is a
// translation key
func (s *Server) newPageData(r *http.Request, titleKey string) *PageData {
	lang := s.requestLanguage(r)

	return &PageData{
		Title:     s.catalog.T(lang, titleKey),
		Lang:      lang,
		Languages: i18n.Languages,
		Config:    s.config,
		Path:      r.URL.Path,
		Year:      time.Now().Year(),
	}
}

// render renders a template with status 200
func (s *Server) render(w http.ResponseWriter, r *http.Request, template string, data *PageData) {
	s.renderStatus(w, r, http.StatusOK, template, data)
}

// renderStatus renders a template with the given status. The page is built
// in memory first so a template failure still yields a clean 500.
func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, template string, data *PageData) {
	var buf bytes.Buffer
	if err := s.templates.Render(&buf, template, data); err != nil {
		s.logger.Error("failed to render page", zap.String("template", template), zap.Error(err))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// errorKeys maps flow error kinds to translated messages
var errorKeys = map[domain.ErrorKind]string{
	domain.KindMissingPhone:     "booking.validation.requiredPhone",
	domain.KindInvalidPhone:     "booking.validation.invalidPhone",
	domain.KindInvalidEmail:     "booking.validation.invalidEmail",
	domain.KindInvalidName:      "booking.validation.invalidName",
	domain.KindMissingService:   "booking.validation.selectService",
	domain.KindCapacityExceeded: "booking.validation.maxDocuments",
	domain.KindFileTooLarge:     "booking.validation.maxFileSize",
	domain.KindNothingToUpload:  "booking.validation.selectFile",
}

// errorText is the message shown for err. Validation errors are translated;
// backend errors keep the text the backend (or the flow) produced.
func (s *Server) errorText(lang i18n.Language, err error) string {
	if key, ok := errorKeys[domain.KindOf(err)]; ok {
		return s.catalog.T(lang, key)
	}
	return domain.MessageOf(err)
}

// handleHome renders the home page
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData(r, "nav.home")

	services, fallback := s.booking.ActiveServices(r.Context())
	if len(services) > 3 {
		services = services[:3]
	}

	data.Data = map[string]interface{}{
		"Services": services,
		"Fallback": fallback,
	}
	s.render(w, r, "pages/home.html", data)
}

// handleServicesPage shows available services, optionally filtered by ?q=
func (s *Server) handleServicesPage(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData(r, "services.title")

	services, fallback := s.booking.ActiveServices(r.Context())
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query != "" {
		services = filterServices(services, query)
	}

	if fallback {
		data.Flash = &FlashMessage{Type: "warning", Message: s.catalog.T(data.Lang, "services.error.fallback")}
	}
	data.Data = map[string]interface{}{
		"Services": services,
		"Query":    query,
		"Fallback": fallback,
	}
	s.render(w, r, "pages/services.html", data)
}

func filterServices(services []domain.Service, query string) []domain.Service {
	q := strings.ToLower(query)
	out := make([]domain.Service, 0, len(services))
	for _, svc := range services {
		if strings.Contains(strings.ToLower(svc.Title), q) || strings.Contains(strings.ToLower(svc.Description), q) {
			out = append(out, svc)
		}
	}
	return out
}

// handleAboutPage renders the about page
func (s *Server) handleAboutPage(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData(r, "about.title")
	s.render(w, r, "pages/about.html", data)
}

// contactForm is the contact page input
type contactForm struct {
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

// contactSubjects are the subject option keys under contact.form.fields.subject.options
var contactSubjects = []string{"notaryServices", "propertyManagement", "leasingRenting", "taxServices", "generalInquiry"}

func contactData(form contactForm) map[string]interface{} {
	return map[string]interface{}{"Form": form, "Subjects": contactSubjects}
}

// handleContactPage renders the contact page
func (s *Server) handleContactPage(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData(r, "contact.title")
	data.Data = contactData(contactForm{})
	s.render(w, r, "pages/contact.html", data)
}

// handleContact hands the contact form to the configured sender
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error processing form", http.StatusBadRequest)
		return
	}

	form := contactForm{
		Name:    strings.TrimSpace(r.FormValue("name")),
		Email:   strings.TrimSpace(r.FormValue("email")),
		Phone:   strings.TrimSpace(r.FormValue("phone")),
		Subject: strings.TrimSpace(r.FormValue("subject")),
		Message: strings.TrimSpace(r.FormValue("message")),
	}

	data := s.newPageData(r, "contact.title")

	switch {
	case form.Name == "" || form.Email == "" || form.Subject == "" || form.Message == "":
		data.Flash = &FlashMessage{Type: "error", Message: s.catalog.T(data.Lang, "contact.form.required")}
	case !validation.IsValidEmail(form.Email):
		data.Flash = &FlashMessage{Type: "error", Message: s.catalog.T(data.Lang, "booking.validation.invalidEmail")}
	}
	if data.Flash != nil {
		data.Data = contactData(form)
		s.render(w, r, "pages/contact.html", data)
		return
	}

	err := s.contact.Send(r.Context(), notifications.ContactMessage{
		Name:    form.Name,
		Email:   form.Email,
		Phone:   form.Phone,
		Subject: form.Subject,
		Body:    form.Message,
	})
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.logger.Error("failed to send contact message", zap.Error(err))
		data.Flash = errorFlash(s.catalog.T(data.Lang, "contact.form.error"))
		data.Data = contactData(form)
		s.render(w, r, "pages/contact.html", data)
		return
	}

	data.Flash = &FlashMessage{Type: "success", Message: s.catalog.T(data.Lang, "contact.form.success")}
	data.Data = contactData(contactForm{})
	s.render(w, r, "pages/contact.html", data)
}

// handleLanguage switches the visitor's language and returns to the
// previous page. The site default is left alone.
func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	lang, ok := i18n.ParseLanguage(getURLParam(r, "code"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}

	s.setLanguageCookie(w, lang)
	http.Redirect(w, r, backTarget(r), http.StatusSeeOther)
}

// backTarget returns the local path of the referring page, or "/"
func backTarget(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
		return "/"
	}
	if ref.Host != "" && ref.Host != r.Host {
		return "/"
	}
	if strings.HasPrefix(ref.Path, "/language/") {
		return "/"
	}
	target := ref.Path
	if ref.RawQuery != "" {
		target += "?" + ref.RawQuery
	}
	return target
}

// handleNotFound renders the not-found page
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData(r, "notFound.title")
	s.renderStatus(w, r, http.StatusNotFound, "pages/not_found.html", data)
}
