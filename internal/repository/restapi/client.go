// Package restapi implements the repository collaborators against the
// PSN Rwanda REST backend
package restapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"psnrwanda/internal/domain"
	"psnrwanda/internal/logger"
)

// DefaultBaseURL is used when no API URL is configured
const DefaultBaseURL = "http://localhost:8032/api/v1"

const maxResponseBytes = 4 << 20

// Options configures a Client
type Options struct {
	BaseURL       string
	Timeout       time.Duration
	UploadTimeout time.Duration
	Logger        *zap.Logger
}

// Client talks to the REST backend. Uploads use their own http.Client so a
// slow document transfer never shares the short request timeout.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	uploadClient *http.Client
	logger       *zap.Logger
}

// NewClient creates a new REST client
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 2 * time.Minute
	}

	return &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		uploadClient: &http.Client{Timeout: opts.UploadTimeout},
		logger:       logger.OrNop(opts.Logger),
	}
}

// BaseURL returns the configured API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// endpoint joins path segments onto the base URL, escaping each one
func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

// response is a fully read HTTP answer
type response struct {
	status int
	body   []byte
}

// do sends the request and reads the body. Any failure to obtain an answer
// becomes a TransportFailure.
func (c *Client) do(client *http.Client, req *http.Request) (response, error) {
	start := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		c.logger.Error("backend request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.Redacted()),
			zap.Error(err),
		)
		return response{}, domain.WrapError(domain.KindTransportFailure, domain.MsgNoResponse, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return response{}, domain.WrapError(domain.KindTransportFailure, domain.MsgNoResponse, fmt.Errorf("read body: %w", err))
	}

	c.logger.Debug("backend request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	return response{status: resp.StatusCode, body: body}, nil
}

func (c *Client) get(ctx context.Context, segments ...string) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(segments...), nil)
	if err != nil {
		return response{}, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(c.httpClient, req)
}

func (c *Client) post(ctx context.Context, client *http.Client, contentType string, body io.Reader, segments ...string) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(segments...), body)
	if err != nil {
		return response{}, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	return c.do(client, req)
}

func (r response) ok() bool {
	return r.status >= 200 && r.status < 300
}
