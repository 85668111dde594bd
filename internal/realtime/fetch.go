package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/klauspost/compress/gzip"
	"github.com/sourcegraph/conc/pool"
	"github.com/the-lmc-group/trainflow/internal/logging"
	"github.com/the-lmc-group/trainflow/internal/metrics"
	"github.com/the-lmc-group/trainflow/internal/models"
	"github.com/the-lmc-group/trainflow/internal/siri"
)

const (
	DefaultFetchTimeout = 10 * time.Second
	DefaultFetchRetries = 2

	maxBodySize          = 50 * 1024 * 1024
	defaultRetryInterval = 500 * time.Millisecond
)

// siriHTTPClient is shared by every provider fetch. The transport is cloned
// from http.DefaultTransport to keep proxy, dialer and HTTP/2 defaults.
var siriHTTPClient = newSIRIHTTPClient()

func newSIRIHTTPClient() *http.Client {
	var transport *http.Transport
	if t, ok := http.DefaultTransport.(*http.Transport); ok {
		transport = t.Clone()
	} else {
		transport = &http.Transport{}
	}
	transport.MaxIdleConns = 50
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.ExpectContinueTimeout = 1 * time.Second

	return &http.Client{
		// upper bound per attempt; the fetch context bounds all retries
		Timeout:   DefaultFetchTimeout,
		Transport: transport,
	}
}

// ProviderFetchError reports a transport failure or a non-200 response.
// StatusCode is zero when no response was received.
type ProviderFetchError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderFetchError) Unwrap() error {
	return e.Err
}

// Temporary reports whether another attempt may succeed.
func (e *ProviderFetchError) Temporary() bool {
	if errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded) {
		return false
	}
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ProviderResult is the outcome of fetching one provider.
type ProviderResult struct {
	Provider   Provider
	Journeys   []models.VehicleJourney
	Err        error
	StatusCode int
	Duration   time.Duration
	FetchedAt  time.Time
}

// Fetcher downloads and decodes provider payloads.
type Fetcher struct {
	client        *http.Client
	timeout       time.Duration
	retries       int
	retryInterval time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// NewFetcher bounds every provider fetch, retries included, by timeout.
// Transient failures are retried up to retries times.
func NewFetcher(timeout time.Duration, retries int, m *metrics.Metrics, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if retries < 0 {
		retries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:        siriHTTPClient,
		timeout:       timeout,
		retries:       retries,
		retryInterval: defaultRetryInterval,
		metrics:       m,
		logger:        logger.With(slog.String("component", "siri_fetcher")),
	}
}

// Fetch downloads and decodes one provider payload.
func (f *Fetcher) Fetch(ctx context.Context, p Provider) (*siri.Siri, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(f.retryInterval),
				backoff.WithMaxElapsedTime(0),
			),
			uint64(f.retries),
		),
		ctx,
	)

	attempt := 0
	return backoff.RetryWithData(func() (*siri.Siri, error) {
		attempt++
		body, err := f.download(ctx, p)
		if err != nil {
			var fetchErr *ProviderFetchError
			if errors.As(err, &fetchErr) && fetchErr.Temporary() {
				f.logger.Debug("provider fetch attempt failed",
					slog.String("provider", p.Name),
					slog.Int("attempt", attempt),
					slog.String("error", err.Error()))
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}

		doc, err := siri.Decode(p.Format, body)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return doc, nil
	}, policy)
}

func (f *Fetcher) download(ctx context.Context, p Provider) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, &ProviderFetchError{Provider: p.Name, Err: err}
	}

	if p.Format == siri.FormatXML {
		req.Header.Set("Accept", "application/xml, text/xml")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("Accept-Encoding", "gzip")
	if p.Token != "" {
		req.Header.Set(p.authHeader(), p.Token)
	}
	for key, value := range p.Headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &ProviderFetchError{Provider: p.Name, Err: err}
	}
	defer logging.SafeCloseWithLogging(resp.Body, f.logger, "http_response_body")

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &ProviderFetchError{
			Provider:   p.Name,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var r io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &ProviderFetchError{Provider: p.Name, StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid gzip body: %w", err)}
		}
		defer logging.SafeCloseWithLogging(gz, f.logger, "gzip_reader")
		r = gz
	}

	body, err := io.ReadAll(io.LimitReader(r, maxBodySize+1))
	if err != nil {
		return nil, &ProviderFetchError{Provider: p.Name, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if int64(len(body)) > maxBodySize {
		return nil, &ProviderFetchError{
			Provider:   p.Name,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("response exceeds size limit of %d bytes", maxBodySize),
		}
	}
	return body, nil
}

// fetchOne never fails: errors are reported in the result.
func (f *Fetcher) fetchOne(ctx context.Context, p Provider) ProviderResult {
	start := time.Now()
	result := ProviderResult{Provider: p}

	doc, err := f.Fetch(ctx, p)
	result.Duration = time.Since(start)
	result.FetchedAt = start

	if err != nil {
		result.Err = err
		var fetchErr *ProviderFetchError
		if errors.As(err, &fetchErr) {
			result.StatusCode = fetchErr.StatusCode
		}
		f.metrics.ObserveProviderFetch(p.Name, "error", result.Duration)
		logging.LogError(f.logger, "provider fetch failed", err,
			slog.String("provider", p.Name),
			slog.String("url", p.URL),
			slog.Duration("duration", result.Duration))
		return result
	}

	result.StatusCode = http.StatusOK
	result.Journeys = siri.ExtractJourneys(doc, p.Name)
	f.metrics.ObserveProviderFetch(p.Name, "success", result.Duration)
	f.metrics.SetProviderJourneys(p.Name, len(result.Journeys))
	logging.LogOperation(f.logger, "provider_fetched",
		slog.String("provider", p.Name),
		slog.Int("journeys", len(result.Journeys)),
		slog.Duration("duration", result.Duration))
	return result
}

// FetchAll fetches every provider concurrently and waits for all of them. A
// failing provider never affects the others. Results follow the order of
// providers.
func (f *Fetcher) FetchAll(ctx context.Context, providers []Provider) []ProviderResult {
	if len(providers) == 0 {
		return nil
	}

	type indexed struct {
		index  int
		result ProviderResult
	}

	p := pool.NewWithResults[indexed]().WithMaxGoroutines(len(providers))
	for i, provider := range providers {
		p.Go(func() indexed {
			return indexed{index: i, result: f.fetchOne(ctx, provider)}
		})
	}

	collected := p.Wait()
	sort.Slice(collected, func(a, b int) bool { return collected[a].index < collected[b].index })

	results := make([]ProviderResult, len(collected))
	for i, c := range collected {
		results[i] = c.result
	}
	return results
}
