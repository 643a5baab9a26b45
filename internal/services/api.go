// API service for making HTTP requests to the Silver Snack backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/snackx/internal/shared"
)

// AuthMode controls whether a request carries the session's bearer token.
type AuthMode int

const (
	// AuthNone sends no Authorization header.
	AuthNone AuthMode = iota
	// AuthOptional attaches the token when a valid session exists.
	AuthOptional
	// AuthRequired fails with [shared.ErrNotAuthenticated] when no valid session exists.
	AuthRequired
)

const defaultBaseURL = "http://localhost:8080"

// APIService performs JSON requests against the backend and decodes its response envelope.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	session    oauth2.TokenSource
	userAgent  string
	logger     *log.Logger
}

// NewAPIService creates a new API service instance for the backend at baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     log.New(io.Discard),
	}
}

// NewAPIServiceFromConfig builds an [APIService] with the timeout, rate limit and user agent from cfg.
func NewAPIServiceFromConfig(cfg shared.APIConfig, session oauth2.TokenSource, logger *log.Logger) *APIService {
	a := NewAPIService(cfg.BaseURL, nil).
		WithTimeout(cfg.Timeout()).
		WithSession(session).
		WithUserAgent(cfg.UserAgent)

	if cfg.RequestsPerSecond > 0 {
		burst := max(cfg.Burst, 1)
		a = a.WithLimiter(rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst))
	}
	if logger != nil {
		a = a.WithLogger(logger)
	}
	return a
}

// WithTimeout bounds every request. Zero disables the per-request deadline.
func (a *APIService) WithTimeout(d time.Duration) *APIService { a.timeout = d; return a }

// WithHTTPClient replaces the HTTP client. nil keeps the current one.
func (a *APIService) WithHTTPClient(c *http.Client) *APIService {
	if c != nil {
		a.httpClient = c
	}
	return a
}

// WithLimiter throttles outgoing requests.
func (a *APIService) WithLimiter(l *rate.Limiter) *APIService { a.limiter = l; return a }

// WithSession sets the source of bearer tokens.
func (a *APIService) WithSession(ts oauth2.TokenSource) *APIService { a.session = ts; return a }

// WithUserAgent sets the User-Agent header.
func (a *APIService) WithUserAgent(ua string) *APIService { a.userAgent = ua; return a }

// WithLogger sets the logger used for request tracing.
func (a *APIService) WithLogger(l *log.Logger) *APIService { a.logger = l; return a }

// BaseURL returns the backend root this service talks to.
func (a *APIService) BaseURL() string { return a.baseURL }

// Envelope is the response wrapper shared by every backend endpoint.
type Envelope struct {
	Success   *bool           `json:"success"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorCode"`
	Result    json.RawMessage `json:"result"`
}

// Failed reports whether the body explicitly flagged failure.
func (e *Envelope) Failed() bool {
	return e != nil && e.Success != nil && !*e.Success
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	// Envelope is nil when the body is empty or not a JSON object.
	Envelope *Envelope
}

// Decode unmarshals the envelope's result into v, falling back to the whole body when no result is present.
func (r *APIResponse) Decode(v any) error {
	raw := r.Body
	if r.Envelope != nil && len(r.Envelope.Result) > 0 && !bytes.Equal(r.Envelope.Result, []byte("null")) {
		raw = r.Envelope.Result
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: empty response body", shared.ErrNetwork)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: malformed response: %v", shared.ErrNetwork, err)
	}
	return nil
}

// HasResult reports whether the envelope carried a non-null result.
func (r *APIResponse) HasResult() bool {
	return r.Envelope != nil && len(r.Envelope.Result) > 0 && !bytes.Equal(r.Envelope.Result, []byte("null"))
}

// APIError is an HTTP error status or an explicit success:false body.
type APIError struct {
	StatusCode int
	Message    string
	ErrorCode  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%v: %s (HTTP %d)", shared.ErrAPIRequest, e.Message, e.StatusCode)
}

// Unwrap makes every [APIError] match [shared.ErrAPIRequest].
func (e *APIError) Unwrap() error { return shared.ErrAPIRequest }

// IsStatus reports whether err is an [APIError] with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

func newAPIError(status int, env *Envelope) *APIError {
	e := &APIError{StatusCode: status}
	if env != nil {
		e.ErrorCode = env.ErrorCode
		e.Message = env.Message
		if e.Message == "" {
			e.Message = env.ErrorCode
		}
	}
	if e.Message == "" {
		if status >= 500 {
			e.Message = "server error"
		} else {
			e.Message = fmt.Sprintf("HTTP %d", status)
		}
	}
	return e
}

// Get performs a GET request to the specified path.
func (a *APIService) Get(ctx context.Context, path string, query url.Values, auth AuthMode) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, query, nil, auth)
}

// Post performs a POST request with body encoded as JSON. A nil body sends no payload.
func (a *APIService) Post(ctx context.Context, path string, body any, auth AuthMode) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPost, path, nil, body, auth)
}

// Patch performs a PATCH request with body encoded as JSON.
func (a *APIService) Patch(ctx context.Context, path string, body any, auth AuthMode) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPatch, path, nil, body, auth)
}

// Do sends one request and classifies the outcome.
//
// Errors wrap [shared.ErrNotAuthenticated] when auth is required and no session exists,
// [shared.ErrTimeout] when the deadline passes, [shared.ErrNetwork] for transport failures,
// and [*APIError] for non-2xx statuses or success:false bodies.
// Cancellation of ctx is returned as the context's own error.
func (a *APIService) Do(ctx context.Context, method, path string, query url.Values, body any, auth AuthMode) (*APIResponse, error) {
	tok, err := a.token(auth)
	if err != nil {
		return nil, err
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, a.transportError(ctx, method, path, err)
		}
	}

	fullURL := a.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to encode request body: %v", shared.ErrInvalidInput, err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := shared.GenerateID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}
	if tok != nil {
		tok.SetAuthHeader(req)
	}

	started := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, a.transportError(ctx, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, a.transportError(ctx, method, path, err)
	}

	a.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "elapsed", time.Since(started))

	apiResp := &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var env Envelope
		if err := json.Unmarshal(trimmed, &env); err == nil {
			apiResp.Envelope = &env
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || apiResp.Envelope.Failed() {
		return apiResp, newAPIError(resp.StatusCode, apiResp.Envelope)
	}
	return apiResp, nil
}

func (a *APIService) token(auth AuthMode) (*oauth2.Token, error) {
	if auth == AuthNone {
		return nil, nil
	}

	var tok *oauth2.Token
	var err error
	if a.session != nil {
		tok, err = a.session.Token()
	}
	if a.session == nil || err != nil || tok == nil || !tok.Valid() {
		if auth == AuthOptional {
			return nil, nil
		}
		if err != nil && errors.Is(err, shared.ErrNotAuthenticated) {
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
		}
		return nil, shared.ErrNotAuthenticated
	}
	return tok, nil
}

func (a *APIService) transportError(ctx context.Context, method, path string, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s %s", shared.ErrTimeout, method, path)
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%s %s: %w", method, path, context.Canceled)
	default:
		return fmt.Errorf("%w: %s %s: %v", shared.ErrNetwork, method, path, err)
	}
}
