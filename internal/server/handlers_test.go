package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psnrwanda/internal/config"
	"psnrwanda/internal/domain"
	"psnrwanda/internal/i18n"
	"psnrwanda/internal/normalize"
	"psnrwanda/internal/session"
)

func TestHealth(t *testing.T) {
	fx := newFixture(t)

	rec := fx.get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestPages(t *testing.T) {
	fx := newFixture(t)

	tests := []struct {
		path string
		want string
	}{
		{"/", "Zebra Filing"},
		{"/services", "Quokka Audit"},
		{"/about", "About Us"},
		{"/contact", "Contact Us"},
		{"/track", "Track Booking"},
		{"/book", "Zebra Filing"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := fx.get(tt.path)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Contains(t, rec.Body.String(), "PSN Rwanda Ltd")
		})
	}

	t.Run("inactive services are hidden", func(t *testing.T) {
		assert.NotContains(t, fx.get("/services").Body.String(), "Retired Service")
	})

	t.Run("not found", func(t *testing.T) {
		rec := fx.get("/no-such-page")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Page Not Found")
	})

	t.Run("security headers", func(t *testing.T) {
		rec := fx.get("/")
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
	})

	t.Run("static files", func(t *testing.T) {
		rec := fx.get("/static/css/site.css")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

		assert.Equal(t, http.StatusNotFound, fx.get("/static/css/").Code)
		assert.Equal(t, http.StatusNotFound, fx.get("/static/missing.js").Code)
	})
}

func TestServicesPage(t *testing.T) {
	t.Run("filter", func(t *testing.T) {
		fx := newFixture(t)
		body := fx.get("/services?q=quokka").Body.String()
		assert.Contains(t, body, "Quokka Audit")
		assert.NotContains(t, body, "Zebra Filing")
	})

	t.Run("backend down uses built-in catalogue", func(t *testing.T) {
		fx := newFixture(t, func(fx *fixture) { fx.services.err = errBackendDown })
		rec := fx.get("/services")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "flash-warning")
		assert.NotContains(t, rec.Body.String(), "Zebra Filing")
	})
}

func TestSessionCookie(t *testing.T) {
	fx := newFixture(t)

	rec := fx.get("/")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, session.CookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)

	t.Run("valid cookie is reused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		assert.Empty(t, fx.serve(req).Result().Cookies())
	})

	t.Run("tampered cookie starts a new session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: cookie.Value + "x"})
		assert.Len(t, fx.serve(req).Result().Cookies(), 1)
	})

	t.Run("health does not start a session", func(t *testing.T) {
		assert.Empty(t, fx.get("/health").Result().Cookies())
	})
}

func TestLanguageSwitch(t *testing.T) {
	fx := newFixture(t)

	t.Run("redirects back and remembers the choice", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/language/fr", nil)
		req.Header.Set("Referer", "http://example.com/about")
		req.Host = "example.com"
		rec := fx.serve(req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/about", rec.Header().Get("Location"))

		var lang *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == languageCookie {
				lang = c
			}
		}
		require.NotNil(t, lang)
		assert.Equal(t, "fr", lang.Value)
		assert.Empty(t, fx.settings.values)
	})

	t.Run("each visitor keeps their own language", func(t *testing.T) {
		french := newBrowser(t, fx)
		english := newBrowser(t, fx)

		status, _ := french.get("/language/fr")
		require.Equal(t, http.StatusOK, status)

		_, body := french.get("/about")
		assert.Contains(t, body, "À Propos")

		_, body = english.get("/about")
		assert.Contains(t, body, "About Us")
		assert.NotContains(t, body, "À Propos")
	})

	t.Run("unsupported language", func(t *testing.T) {
		rec := fx.get("/language/de")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		for _, c := range rec.Result().Cookies() {
			assert.NotEqual(t, languageCookie, c.Name)
		}
	})

	t.Run("stored site default", func(t *testing.T) {
		fx := newFixture(t, func(fx *fixture) { fx.settings.values[i18n.SettingKey] = "fr" })

		assert.Contains(t, fx.get("/about").Body.String(), "À Propos")

		req := httptest.NewRequest(http.MethodGet, "/about", nil)
		req.AddCookie(&http.Cookie{Name: languageCookie, Value: "en"})
		assert.Contains(t, fx.serve(req).Body.String(), "About Us")

		req = httptest.NewRequest(http.MethodGet, "/about", nil)
		req.AddCookie(&http.Cookie{Name: languageCookie, Value: "de"})
		assert.Contains(t, fx.serve(req).Body.String(), "À Propos")
	})
}

func TestBackTarget(t *testing.T) {
	tests := []struct {
		name    string
		referer string
		want    string
	}{
		{"no referer", "", "/"},
		{"same host", "http://example.com/track?mode=phone", "/track?mode=phone"},
		{"relative", "/services", "/services"},
		{"other host", "http://evil.test/steal", "/"},
		{"language loop", "http://example.com/language/en", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/language/en", nil)
			req.Host = "example.com"
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			assert.Equal(t, tt.want, backTarget(req))
		})
	}
}

func TestContact(t *testing.T) {
	fx := newFixture(t)

	t.Run("missing fields", func(t *testing.T) {
		rec := fx.serve(postForm("/contact", url.Values{"name": {"Alice"}}))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Please fill in all required fields.")
		assert.Contains(t, rec.Body.String(), `value="Alice"`)
	})

	t.Run("invalid email", func(t *testing.T) {
		rec := fx.serve(postForm("/contact", url.Values{
			"name": {"Alice"}, "email": {"nope"}, "subject": {"generalInquiry"}, "message": {"Hi"},
		}))
		assert.Contains(t, rec.Body.String(), "Please enter a valid email address.")
	})

	t.Run("sent", func(t *testing.T) {
		rec := fx.serve(postForm("/contact", url.Values{
			"name": {"Alice"}, "email": {"alice@example.com"}, "subject": {"generalInquiry"}, "message": {"Hi"},
		}))
		assert.Contains(t, rec.Body.String(), "flash-success")
		assert.NotContains(t, rec.Body.String(), `value="Alice"`)
	})
}

var removeLocalRe = regexp.MustCompile(`value="remove_local:([^"]+)"`)

func TestBookingFlow(t *testing.T) {
	fx := newFixture(t, func(fx *fixture) {
		fx.documents.docs = []domain.UploadedDocument{
			{ID: 41, FileName: "passport.pdf", FilePath: "docs/passport.pdf", FileType: "application/pdf", FileSize: 2048},
		}
	})
	b := newBrowser(t, fx)

	status, body := b.get("/book?service=2")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<option value="2" selected>`)
	assert.Contains(t, body, "Tax review")

	t.Run("submit without phone", func(t *testing.T) {
		_, body := b.post("/book", map[string]string{"action": "submit", "serviceId": "2", "fullName": "Alice"})
		assert.Contains(t, body, "Phone number is required to process your booking.")
		assert.Contains(t, body, `value="Alice"`)
		assert.Empty(t, fx.bookings.calls)
	})

	t.Run("add without file", func(t *testing.T) {
		_, body := b.post("/book", map[string]string{"action": "add_document", "serviceId": "2"})
		assert.Contains(t, body, "Please select at least one document to upload.")
	})

	t.Run("stage and remove a file", func(t *testing.T) {
		_, body := b.post("/book", map[string]string{"action": "add_document", "serviceId": "2"},
			upload{name: "draft.pdf", data: []byte("%PDF-1.4")})
		assert.Contains(t, body, "draft.pdf")

		m := removeLocalRe.FindStringSubmatch(body)
		require.Len(t, m, 2)

		_, body = b.post("/book", map[string]string{"action": "remove_local:" + m[1], "serviceId": "2"})
		assert.NotContains(t, body, "draft.pdf")
	})

	t.Run("stage and upload", func(t *testing.T) {
		b.post("/book", map[string]string{"action": "add_document", "serviceId": "2"},
			upload{name: "passport.pdf", data: []byte("%PDF-1.4")})

		_, body := b.post("/book", map[string]string{"action": "upload", "serviceId": "2"})
		assert.Contains(t, body, "Documents uploaded successfully!")
		assert.Contains(t, body, `value="remove_uploaded:41"`)
		assert.NotContains(t, body, "remove_local:")
	})

	t.Run("submit", func(t *testing.T) {
		status, body := b.post("/book", map[string]string{
			"action":      "submit",
			"serviceId":   "2",
			"phoneNumber": "0788123456",
			"fullName":    "Alice Uwase",
			"notes":       "Urgent",
		})
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "TRK-ABC123")
		assert.Contains(t, body, "data:image/png;base64,")
		assert.Contains(t, body, "/track?mode=code&amp;q=TRK-ABC123")

		require.Len(t, fx.bookings.calls, 1)
		payload := fx.bookings.calls[0]
		assert.Equal(t, "0788123456", payload.PhoneNumber)
		assert.Equal(t, int64(2), payload.ServiceID)
		assert.Equal(t, []string{"41"}, payload.DocumentIDs)
	})

	t.Run("submitted draft stays on confirmation", func(t *testing.T) {
		_, body := b.get("/book/submitted")
		assert.Contains(t, body, "TRK-ABC123")

		_, body = b.post("/book", map[string]string{"action": "submit", "phoneNumber": "0788123456", "serviceId": "2"})
		assert.Contains(t, body, "TRK-ABC123")
		assert.Len(t, fx.bookings.calls, 1)
	})

	t.Run("book now after submission starts a fresh draft", func(t *testing.T) {
		_, body := b.get("/book?service=1")
		assert.NotContains(t, body, "TRK-ABC123")
		assert.Contains(t, body, `<option value="1" selected>`)
		assert.NotContains(t, body, `value="0788123456"`)
		assert.NotContains(t, body, "remove_uploaded:")

		_, body = b.get("/book/submitted")
		assert.NotContains(t, body, "TRK-ABC123")
		assert.Contains(t, body, `name="phoneNumber"`)
	})

	t.Run("new booking", func(t *testing.T) {
		_, body := b.get("/book/new")
		assert.NotContains(t, body, "TRK-ABC123")
		assert.Contains(t, body, `name="phoneNumber"`)
	})
}

func TestBookingSubmittedPlainVisit(t *testing.T) {
	fx := newFixture(t)
	b := newBrowser(t, fx)

	_, body := b.post("/book", map[string]string{"action": "submit", "phoneNumber": "0788123456", "serviceId": "2"})
	require.Contains(t, body, "TRK-ABC123")

	_, body = b.get("/book")
	assert.NotContains(t, body, "TRK-ABC123")
	assert.Contains(t, body, `name="phoneNumber"`)
	assert.NotContains(t, body, `value="0788123456"`)
}

func TestBookingSlowPrimaryUpload(t *testing.T) {
	fx := newFixture(t, func(fx *fixture) {
		fx.cfg.Server = config.Server{Port: 8080, ReadTimeout: 1, WriteTimeout: 1, UploadReadTimeout: 1}
		fx.cfg.API.Timeout = 1
		fx.cfg.API.UploadTimeout = 1
		fx.documents.delay = 700 * time.Millisecond
		fx.documents.err = domain.NewError(domain.KindParseFailure, domain.MsgUploadUnparsed)
		fx.documents.alternate = &fakeDocuments{
			delay: 700 * time.Millisecond,
			docs:  []domain.UploadedDocument{{ID: 52, FileName: "deed.pdf", FilePath: "docs/deed.pdf", FileType: "application/pdf", FileSize: 8}},
		}
	})
	// Both attempts together outlast the page timeouts of the http.Server
	b := newBrowser(t, fx, func(srv *http.Server) {
		srv.ReadTimeout = fx.cfg.PageTimeout()
		srv.WriteTimeout = fx.cfg.PageTimeout()
	})

	b.post("/book", map[string]string{"action": "add_document"}, upload{name: "deed.pdf", data: []byte("%PDF-1.4")})

	start := time.Now()
	status, body := b.post("/book", map[string]string{"action": "upload"})
	assert.Greater(t, time.Since(start), fx.cfg.PageTimeout())
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Documents uploaded successfully!")
	assert.Contains(t, body, `value="remove_uploaded:52"`)
}

func TestBookingUploadFailure(t *testing.T) {
	fx := newFixture(t, func(fx *fixture) {
		fx.documents.err = domain.NewError(domain.KindParseFailure, domain.MsgUploadUnparsed)
	})
	b := newBrowser(t, fx)

	b.post("/book", map[string]string{"action": "add_document"}, upload{name: "id.png", data: []byte("png")})
	_, body := b.post("/book", map[string]string{"action": "upload"})

	assert.Contains(t, body, domain.MsgUploadUnparsed)
	assert.Contains(t, body, `value="retry_upload"`)
	assert.Contains(t, body, "id.png")
}

func TestBookingServerRejected(t *testing.T) {
	fx := newFixture(t, func(fx *fixture) {
		fx.bookings.result = domain.BookingResult{Success: false, ErrorMessage: "Service is fully booked"}
	})
	b := newBrowser(t, fx)

	_, body := b.post("/book", map[string]string{"action": "submit", "phoneNumber": "0788123456", "serviceId": "1"})
	assert.Contains(t, body, "Service is fully booked")
	assert.Contains(t, body, `value="0788123456"`)
}

func TestBookingPostWithoutConnectionDeadlines(t *testing.T) {
	fx := newFixture(t)

	// A recorder cannot move deadlines; the post is still handled
	rec := fx.serve(postForm("/book", url.Values{"action": {"select_service"}, "serviceId": {"1"}}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<option value="1" selected>`)
}

func TestTrackPage(t *testing.T) {
	t.Run("found by code", func(t *testing.T) {
		fx := newFixture(t, func(fx *fixture) {
			fx.tracker.code = normalize.Object{
				"id": 7, "trackingNumber": "TRK-777", "status": "IN_PROGRESS",
				"serviceName": "Zebra Filing", "phoneNumber": "0788123456",
			}
		})
		body := fx.get("/track?mode=code&q=TRK-777").Body.String()
		assert.Contains(t, body, "TRK-777")
		assert.Contains(t, body, "In Progress")
		assert.Contains(t, body, "status-progress")
	})

	t.Run("legacy tracking parameter", func(t *testing.T) {
		fx := newFixture(t, func(fx *fixture) {
			fx.tracker.code = normalize.Object{"id": 8, "trackingNumber": "TRK-888"}
		})
		assert.Contains(t, fx.get("/track?tracking=TRK-888").Body.String(), "TRK-888")
	})

	t.Run("not found", func(t *testing.T) {
		fx := newFixture(t)
		body := fx.get("/track?mode=code&q=TRK-000").Body.String()
		assert.Contains(t, body, "No booking found with this tracking number.")
	})

	t.Run("empty query", func(t *testing.T) {
		fx := newFixture(t)
		body := fx.get("/track?mode=code&q=+").Body.String()
		assert.Contains(t, body, "flash-warning")
		assert.NotContains(t, body, "No booking found")
	})

	t.Run("backend failure", func(t *testing.T) {
		fx := newFixture(t, func(fx *fixture) {
			fx.tracker.codeErr = domain.NewError(domain.KindTransportFailure, domain.MsgNoResponse)
		})
		body := fx.get("/track?q=TRK-1").Body.String()
		assert.Contains(t, body, "Failed to fetch booking information. Please try again later.")
	})

	t.Run("by phone", func(t *testing.T) {
		fx := newFixture(t, func(fx *fixture) {
			fx.tracker.phone = []normalize.Object{
				{"id": 1, "trackingNumber": "TRK-1", "createdAt": "2024-03-09T10:00:00Z"},
				{"id": 2, "trackingNumber": "TRK-2"},
			}
		})
		body := fx.get("/track?mode=phone&q=0788123456").Body.String()
		assert.Contains(t, body, "2 Bookings Found")
		assert.Contains(t, body, "09/03/2024")
	})

	t.Run("by phone backend failure", func(t *testing.T) {
		fx := newFixture(t, func(fx *fixture) {
			fx.tracker.phoneErr = domain.NewError(domain.KindTransportFailure, domain.MsgNoResponse)
		})
		body := fx.get("/track?mode=phone&q=0788123456").Body.String()
		assert.Contains(t, body, "No bookings found with this phone number.")
		assert.NotContains(t, body, "flash-error")
	})
}

func TestAPIValidate(t *testing.T) {
	fx := newFixture(t)

	call := func(body string) map[string]interface{} {
		req := httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := fx.serve(req)
		require.Equal(t, http.StatusOK, rec.Code)

		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out
	}

	out := call(`{"field":"phoneNumber","value":"123"}`)
	assert.Equal(t, false, out["valid"])
	assert.Contains(t, out["message"], "valid phone number")

	out = call(`{"field":"phoneNumber","value":"0788123456"}`)
	assert.Equal(t, true, out["valid"])

	t.Run("form encoded", func(t *testing.T) {
		rec := fx.serve(postForm("/api/validate", url.Values{"field": {"email"}, "value": {"bad"}}))
		assert.Contains(t, rec.Body.String(), `"valid":false`)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/validate", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		assert.Equal(t, http.StatusBadRequest, fx.serve(req).Code)
	})
}

func TestAPIGetService(t *testing.T) {
	fx := newFixture(t)

	rec := fx.get("/api/services/1")
	assert.Equal(t, http.StatusOK, rec.Code)
	var svc domain.Service
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &svc))
	assert.Equal(t, "Zebra Filing", svc.Title)

	assert.Equal(t, http.StatusBadRequest, fx.get("/api/services/abc").Code)
	assert.Equal(t, http.StatusNotFound, fx.get("/api/services/99").Code)
}

func TestTrackingURL(t *testing.T) {
	assert.Equal(t, "https://psn.test/track?mode=code&q=TRK-1", trackingURL("https://psn.test", "TRK-1"))
	assert.Equal(t, "https://psn.test/site/track?mode=code&q=TRK+1", trackingURL("https://psn.test/site/", "TRK 1"))

	t.Run("request headers are ignored", func(t *testing.T) {
		fx := newFixture(t)
		b := newBrowser(t, fx)

		req, err := http.NewRequest(http.MethodPost, b.base+"/book",
			strings.NewReader(url.Values{"action": {"submit"}, "phoneNumber": {"0788123456"}, "serviceId": {"1"}}.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-Proto", "http")
		req.Host = "evil.test"

		resp, err := b.client.Do(req)
		require.NoError(t, err)
		_, body := readBody(t, resp)
		assert.Contains(t, body, "https://psn.test/track?mode=code&amp;q=TRK-ABC123")
		assert.NotContains(t, body, "evil.test")
	})
}

func TestRateLimit(t *testing.T) {
	fx := newFixture(t, func(fx *fixture) { fx.cfg.RateLimit = config.RateLimit{PerMinute: 1, Burst: 1} })

	form := url.Values{"name": {"A"}}
	assert.Equal(t, http.StatusOK, fx.serve(postForm("/contact", form)).Code)
	assert.Equal(t, http.StatusTooManyRequests, fx.serve(postForm("/contact", form)).Code)

	t.Run("pages are not limited", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, fx.get("/contact").Code)
	})

	t.Run("other clients are not affected", func(t *testing.T) {
		req := postForm("/contact", form)
		req.RemoteAddr = "198.51.100.7:4000"
		assert.Equal(t, http.StatusOK, fx.serve(req).Code)
	})
}

func TestIPLimiterPrune(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newIPLimiter(60, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))

	now = now.Add(time.Second)
	assert.True(t, l.allow("b"))

	now = now.Add(10 * time.Minute)
	l.prune(5 * time.Minute)
	assert.Empty(t, l.limiters)
}
