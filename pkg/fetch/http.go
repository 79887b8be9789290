package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/itempager/pkg/logging"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Remote item source endpoints.
const (
	PathPayloads   = "/v1/items/payloads"
	PathMetadata   = "/v1/items/metadata"
	PathCollection = "/v1/collection"
)

// HTTPConfig holds the remote item source configuration.
type HTTPConfig struct {
	// BaseURL of the item source, e.g. "http://localhost:9000".
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// RequestsPerSecond paces requests to the source; 0 disables pacing.
	RequestsPerSecond float64

	// Burst is the limiter burst size.
	Burst int

	// Timeout per HTTP request.
	Timeout time.Duration
}

// DefaultHTTPConfig returns a default configuration for baseURL.
func DefaultHTTPConfig(baseURL string) HTTPConfig {
	return HTTPConfig{
		BaseURL:           baseURL,
		UserAgent:         "itempager/0.1.0",
		RequestsPerSecond: 20,
		Burst:             8,
		Timeout:           30 * time.Second,
	}
}

// BatchRequest is the request body of both batch endpoints.
type BatchRequest struct {
	Indices []int `json:"indices"`
}

// BatchResponse is the response body of both batch endpoints.
// Values are base64-encoded on the wire.
type BatchResponse struct {
	Items map[int][]byte `json:"items"`
}

// CollectionResponse describes the remote collection.
type CollectionResponse struct {
	ItemCount int `json:"item_count"`
}

// HTTPFetcher fetches items from a remote item source over HTTP.
// The source is stateless, so ReleaseItems has nothing to free remotely.
type HTTPFetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	config     HTTPConfig
	logger     zerolog.Logger
}

// NewHTTPFetcher creates a fetcher for the configured source.
func NewHTTPFetcher(cfg HTTPConfig) (*HTTPFetcher, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("requests_per_second must be >= 0 (got %v)", cfg.RequestsPerSecond)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &HTTPFetcher{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		config:     cfg,
		logger:     logging.NewLogger(logging.ComponentHTTPFetcher),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (f *HTTPFetcher) SetHTTPClient(client *http.Client) {
	f.httpClient = client
}

// BatchFetchPayloads implements Fetcher.
func (f *HTTPFetcher) BatchFetchPayloads(ctx context.Context, indices []int) (map[int][]byte, error) {
	return f.postBatch(ctx, KindPayload, PathPayloads, indices)
}

// BatchFetchMetadata implements Fetcher.
func (f *HTTPFetcher) BatchFetchMetadata(ctx context.Context, indices []int) (map[int][]byte, error) {
	return f.postBatch(ctx, KindMetadata, PathMetadata, indices)
}

// ReleaseItems implements Fetcher.
func (f *HTTPFetcher) ReleaseItems(indices []int) {
	f.logger.Debug().Int("items", len(indices)).Msg("Released items")
}

// ItemCount asks the source for the collection size.
func (f *HTTPFetcher) ItemCount(ctx context.Context) (int, error) {
	body, status, err := f.do(ctx, http.MethodGet, PathCollection, nil)
	if err != nil {
		return 0, fmt.Errorf("get collection: %w", err)
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("get collection: unexpected status %d", status)
	}

	var resp CollectionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode collection: %w", err)
	}
	if resp.ItemCount < 0 {
		return 0, fmt.Errorf("decode collection: negative item count %d", resp.ItemCount)
	}
	return resp.ItemCount, nil
}

func (f *HTTPFetcher) postBatch(ctx context.Context, kind Kind, path string, indices []int) (map[int][]byte, error) {
	payload, err := json.Marshal(BatchRequest{Indices: indices})
	if err != nil {
		return nil, &BatchError{Kind: kind, Indices: indices, Err: fmt.Errorf("marshal request: %w", err)}
	}

	body, status, err := f.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, &BatchError{Kind: kind, Indices: indices, Err: err}
	}
	if status != http.StatusOK {
		f.logger.Warn().
			Str("endpoint", path).
			Int("status", status).
			Int("batch_size", len(indices)).
			Msg("Item source error")
		return nil, &BatchError{
			Kind:       kind,
			Indices:    indices,
			StatusCode: status,
			Err:        errors.New(strings.TrimSpace(string(body))),
		}
	}

	var resp BatchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &BatchError{Kind: kind, Indices: indices, StatusCode: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return resp.Items, nil
}

// do executes one paced request and returns the body and status code.
func (f *HTTPFetcher) do(ctx context.Context, method, path string, payload []byte) ([]byte, int, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limit wait: %w", err)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(f.config.BaseURL, "/")+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if f.config.UserAgent != "" {
		req.Header.Set("User-Agent", f.config.UserAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		sourceRequestsTotal.WithLabelValues(path, "network_error").Inc()
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	sourceRequestsTotal.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}
