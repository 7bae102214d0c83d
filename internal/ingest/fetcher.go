package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"addrnorm/internal/config"
	"addrnorm/internal/logger"
)

// ErrUnexpectedStatusCode indicates an HTTP response with unexpected status.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

// Download is a fetched remote document.
type Download struct {
	Name        string
	ContentType string
	Data        []byte
	Attempts    int
	Duration    time.Duration
}

// Format infers the input format from the URL path, then the content type.
func (d *Download) Format() (Format, error) {
	if f, err := DetectFormat(d.Name); err == nil {
		return f, nil
	}

	mediaType, _, _ := mime.ParseMediaType(d.ContentType)
	switch mediaType {
	case "text/csv":
		return FormatCSV, nil
	case "application/json":
		return FormatJSON, nil
	case "text/plain":
		return FormatTXT, nil
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX, nil
	}

	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, d.Name, d.ContentType)
}

// Fetcher downloads remote address files with config-driven retry logic.
type Fetcher struct {
	client   *http.Client
	retry    config.RetryPolicy
	maxBytes int64
	log      *logger.Logger
}

// NewFetcher creates a fetcher. A zero maxBytes means DefaultMaxBytes.
func NewFetcher(retry config.RetryPolicy, maxBytes int64, log *logger.Logger) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	if log == nil {
		log = logger.Discard()
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: retry.GetTimeout(),
		},
		retry:    retry,
		maxBytes: maxBytes,
		log:      log,
	}
}

// Fetch downloads rawURL, retrying transport errors and 408/429/503/504 responses.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Download, error) {
	start := time.Now()

	var lastErr error

	for attempt := 1; attempt <= f.retry.MaxAttempts; attempt++ {
		data, resp, err := f.get(ctx, rawURL)
		if err == nil {
			return &Download{
				Name:        downloadName(rawURL),
				ContentType: resp.Header.Get("Content-Type"),
				Data:        data,
				Attempts:    attempt,
				Duration:    time.Since(start),
			}, nil
		}

		lastErr = fmt.Errorf("attempt %d/%d: %w", attempt, f.retry.MaxAttempts, err)

		if !retryable(resp, err) || ctx.Err() != nil || attempt == f.retry.MaxAttempts {
			break
		}

		delay := f.retry.GetRetryDelay(attempt)
		f.log.Warn("download failed, retrying", "url", rawURL, "attempt", attempt, "delay", delay, "error", err)

		if err := sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("download cancelled: %w", err)
		}
	}

	return nil, fmt.Errorf("failed to download %s: %w", rawURL, lastErr)
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "text/csv,application/json,text/plain,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, resp, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(data)) > f.maxBytes {
		return nil, resp, fmt.Errorf("%w: more than %d bytes", ErrInputTooLarge, f.maxBytes)
	}

	return data, resp, nil
}

// retryable reports whether a failed attempt may succeed when repeated.
func retryable(resp *http.Response, err error) bool {
	if errors.Is(err, ErrInputTooLarge) {
		return false
	}

	if resp == nil {
		return true
	}

	return isRetryableStatus(resp.StatusCode)
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusServiceUnavailable, // 503
		http.StatusGatewayTimeout,  // 504
		http.StatusTooManyRequests, // 429
		http.StatusRequestTimeout:  // 408
		return true
	}

	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func downloadName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	return path.Base(u.Path)
}

// IsRemote reports whether src is an http(s) URL rather than a local path.
func IsRemote(src string) bool {
	lower := strings.ToLower(src)

	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Load reads addresses from a local path or, via fetcher, from a URL.
func Load(ctx context.Context, src string, fetcher *Fetcher, opts Options) ([]string, error) {
	if !IsRemote(src) {
		return ReadFile(src, opts)
	}

	dl, err := fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	format, err := dl.Format()
	if err != nil {
		return nil, err
	}

	return Parse(dl.Data, format, opts)
}
