package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"psnrwanda/internal/booking"
	"psnrwanda/internal/config"
	"psnrwanda/internal/domain"
	"psnrwanda/internal/i18n"
	"psnrwanda/internal/normalize"
	"psnrwanda/internal/repository"
	"psnrwanda/internal/session"
	"psnrwanda/internal/templates"
	"psnrwanda/internal/tracking"
)

type fakeServices struct {
	list []domain.Service
	err  error
}

func (f *fakeServices) List(ctx context.Context) ([]domain.Service, error) {
	return f.list, f.err
}

func (f *fakeServices) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range f.list {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, nil
}

type fakeBookings struct {
	mu     sync.Mutex
	calls  []domain.BookingPayload
	result domain.BookingResult
	err    error
}

func (f *fakeBookings) Create(ctx context.Context, payload domain.BookingPayload) (domain.BookingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, payload)
	return f.result, f.err
}

type fakeDocuments struct {
	docs  []domain.UploadedDocument
	err   error
	delay time.Duration
	// alternate answers UploadAlternate when set
	alternate *fakeDocuments
}

func (f *fakeDocuments) Upload(ctx context.Context, files []domain.FileUpload) ([]domain.UploadedDocument, error) {
	return f.respond(ctx)
}

func (f *fakeDocuments) UploadAlternate(ctx context.Context, files []domain.FileUpload) ([]domain.UploadedDocument, error) {
	if f.alternate != nil {
		return f.alternate.respond(ctx)
	}
	return f.respond(ctx)
}

func (f *fakeDocuments) respond(ctx context.Context) ([]domain.UploadedDocument, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.docs, f.err
}

type fakeTracker struct {
	phone    []normalize.Object
	phoneErr error
	code     normalize.Object
	codeErr  error
}

func (f *fakeTracker) ByPhone(ctx context.Context, phone string) ([]normalize.Object, error) {
	return f.phone, f.phoneErr
}

func (f *fakeTracker) ByCode(ctx context.Context, code string) (normalize.Object, error) {
	return f.code, f.codeErr
}

type memSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memSettings) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memSettings) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// fixture wires a server to in-memory collaborators
type fixture struct {
	cfg       *config.Config
	services  *fakeServices
	bookings  *fakeBookings
	documents *fakeDocuments
	tracker   *fakeTracker
	settings  *memSettings
	server    *Server
}

var testServices = []domain.Service{
	{ID: 1, Title: "Zebra Filing", Description: "Notarised filings", IsActive: true, BulletPoints: []string{"Same day"}},
	{ID: 2, Title: "Quokka Audit", Description: "Tax review", IsActive: true},
	{ID: 3, Title: "Retired Service", Description: "Gone", IsActive: false},
}

func newFixture(t *testing.T, opts ...func(*fixture)) *fixture {
	t.Helper()

	fx := &fixture{
		cfg: &config.Config{
			Debug:     true,
			Server:    config.Server{Port: 8080, ReadTimeout: 15, WriteTimeout: 30, UploadReadTimeout: 300},
			Site:      config.Site{PublicURL: "https://psn.test"},
			API:       config.API{BaseURL: "http://api.test/api/v1", Timeout: 15, UploadTimeout: 120},
			Business:  config.Business{Name: "PSN Rwanda Ltd", ContactEmail: "info@psnrwanda.com", ContactPhone: "+250 788 859 612"},
			RateLimit: config.RateLimit{PerMinute: 600, Burst: 100},
		},
		services:  &fakeServices{list: testServices},
		bookings:  &fakeBookings{result: domain.BookingResult{Success: true, TrackingNumber: "TRK-ABC123"}},
		documents: &fakeDocuments{},
		tracker:   &fakeTracker{},
		settings:  &memSettings{values: map[string]string{}},
	}
	for _, opt := range opts {
		opt(fx)
	}

	log := zap.NewNop()
	catalog, err := i18n.Load(log)
	require.NoError(t, err)

	pref, err := i18n.LoadPreference(context.Background(), fx.settings, log)
	require.NoError(t, err)

	tmpl, err := templates.NewManager("../../templates", false, templates.Options{Catalog: catalog, APIBase: fx.cfg.API.BaseURL})
	require.NoError(t, err)

	collab := repository.Collaborators{
		Services:  fx.services,
		Bookings:  fx.bookings,
		Documents: fx.documents,
		Tracker:   fx.tracker,
		Settings:  fx.settings,
	}

	fx.server = New(fx.cfg, Deps{
		Templates: tmpl,
		Catalog:   catalog,
		Language:  pref,
		Booking:   booking.NewFlow(collab, log),
		Tracking:  tracking.NewService(fx.tracker, tracking.Options{}, log),
		Sessions:  session.NewStore(time.Hour, log),
		Signer:    session.NewSigner("test-secret", 24*time.Hour, "PSN Rwanda Ltd"),
		StaticDir: "../../static",
	}, log)
	return fx
}

// serve runs one request through the router
func (fx *fixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	fx.server.GetRouter().ServeHTTP(rec, req)
	return rec
}

func (fx *fixture) get(target string) *httptest.ResponseRecorder {
	return fx.serve(httptest.NewRequest(http.MethodGet, target, nil))
}

// browser keeps cookies across requests like a visitor's browser
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

// newBrowser starts a test server for fx; opts adjust its http.Server
// before it starts
func newBrowser(t *testing.T, fx *fixture, opts ...func(*http.Server)) *browser {
	t.Helper()
	ts := httptest.NewUnstartedServer(fx.server.GetRouter())
	for _, opt := range opts {
		opt(ts.Config)
	}
	ts.Start()
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: ts.URL, client: &http.Client{Jar: jar}}
}

func (b *browser) get(path string) (int, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.base + path)
	require.NoError(b.t, err)
	return readBody(b.t, resp)
}

type upload struct {
	name string
	data []byte
}

// post sends the booking form the way the page does, as multipart
func (b *browser) post(path string, fields map[string]string, files ...upload) (int, string) {
	b.t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(b.t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("document", f.name)
		require.NoError(b.t, err)
		_, err = part.Write(f.data)
		require.NoError(b.t, err)
	}
	require.NoError(b.t, mw.Close())

	resp, err := b.client.Post(b.base+path, mw.FormDataContentType(), &body)
	require.NoError(b.t, err)
	return readBody(b.t, resp)
}

func readBody(t *testing.T, resp *http.Response) (int, string) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

var errBackendDown = errors.New("backend down")
