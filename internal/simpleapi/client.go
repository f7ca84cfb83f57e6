package simpleapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/bilusteknoloji/pvsolve/internal/resolveerrors"
)

const (
	defaultBaseURL = "https://pypi.org/simple"
	maxRetries     = 3
	clientTimeout  = 30 * time.Second
	simpleAccept   = "application/vnd.pypi.simple.v1+json"
)

// Client is the capability surface the metadata provider needs from the
// simple index: per-project listings and per-artifact METADATA bytes.
type Client interface {
	FetchProject(ctx context.Context, name string) (*ProjectPage, error)
	FetchMetadata(ctx context.Context, f File) ([]byte, error)
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient sets the HTTP client used for index requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithBaseURL sets a custom index base URL, useful for testing against
// an httptest.Server.
func WithBaseURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.baseURL = url
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service fetches simple-index listings and artifact metadata over HTTP.
type Service struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

var _ Client = (*Service)(nil)

// New creates a simple-index client.
func New(opts ...Option) *Service {
	s := &Service{
		httpClient: &http.Client{Timeout: clientTimeout},
		baseURL:    defaultBaseURL,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// FetchProject fetches a project's artifact listing.
// Endpoint: GET {baseURL}/{name}/
func (s *Service) FetchProject(ctx context.Context, name string) (*ProjectPage, error) {
	url := fmt.Sprintf("%s/%s/", s.baseURL, name)

	body, err := s.fetch(ctx, url, name)
	if err != nil {
		return nil, err
	}

	var page ProjectPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, resolveerrors.ProviderError{Kind: resolveerrors.ProviderParse, Package: name, Err: err}
	}

	return &page, nil
}

// FetchMetadata returns the METADATA bytes for an artifact, preferring
// the PEP 658 separate-metadata file when the listing advertised it and
// falling back to a central-directory range-request extraction
// otherwise.
func (s *Service) FetchMetadata(ctx context.Context, f File) ([]byte, error) {
	if f.DistInfoMetadata.Available {
		body, err := s.fetch(ctx, f.URL+".metadata", f.Filename)
		if err == nil {
			return body, nil
		}

		s.logger.Debug("PEP 658 metadata fetch failed, falling back to range extraction",
			slog.String("artifact", f.Filename), slog.String("error", err.Error()))
	}

	return extractMetadataByRange(ctx, s.httpClient, f.URL)
}

// fetch performs an HTTP GET with retry and exponential backoff. Only
// transient errors (5xx, network errors) are retried; permanent errors
// (404, bad body) are returned immediately.
func (s *Service) fetch(ctx context.Context, url, label string) ([]byte, error) {
	var lastErr error

	for attempt := range maxRetries {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 500 * time.Millisecond
			s.logger.Debug("retrying simple-index request",
				slog.String("target", label),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetching %s: %w", label, ctx.Err())
			case <-time.After(backoff):
			}
		}

		body, err := s.doRequest(ctx, url)
		if err == nil {
			return body, nil
		}

		var re *retryableError
		if !errors.As(err, &re) {
			return nil, err
		}

		lastErr = err
		s.logger.Debug("simple-index request failed",
			slog.String("target", label),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
	}

	return nil, resolveerrors.ProviderError{
		Kind:    resolveerrors.ProviderTransport,
		Package: label,
		Err:     fmt.Errorf("after %d attempts: %w", maxRetries, lastErr),
	}
}

// retryableError indicates a transient error that should be retried.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (s *Service) doRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", url, err)
	}

	req.Header.Set("Accept", simpleAccept)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("requesting %s: %w", url, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, resolveerrors.ProviderError{Kind: resolveerrors.ProviderNotFound, Err: fmt.Errorf("not found at %s", url)}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &retryableError{err: fmt.Errorf("server error %d from %s", resp.StatusCode, url)}
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent:
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("reading response from %s: %w", url, err)}
	}

	return body, nil
}
