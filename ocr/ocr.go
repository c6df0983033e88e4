// Package ocr extracts text from product images through external OCR
// providers. A Batch wraps any provider with bounded concurrency and
// retries so a page full of images cannot stampede the provider.
package ocr

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/shopscout/agent/log"
)

// DefaultMaxConcurrent bounds in-flight OCR requests per batch processor.
const DefaultMaxConcurrent = 5

// Service performs OCR on one image URL. Implementations return "" with a
// nil error for images the provider cannot process by design (unsupported
// formats), and an error for genuine failures.
type Service interface {
	Perform(ctx context.Context, imageURL string) (string, error)
}

// Batch runs a Service over many images with a shared concurrency bound and
// per-image retries. One Batch is meant to be shared across sessions so the
// bound holds process-wide.
type Batch struct {
	service    Service
	sem        *semaphore.Weighted
	maxRetries int
	backoff    func(attempt int) time.Duration
	logger     log.Logger
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithMaxConcurrent bounds in-flight requests.
func WithMaxConcurrent(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithMaxRetries sets attempts per image beyond the first.
func WithMaxRetries(n int) BatchOption {
	return func(b *Batch) { b.maxRetries = n }
}

// WithLogger sets the batch logger.
func WithLogger(logger log.Logger) BatchOption {
	return func(b *Batch) { b.logger = logger }
}

func withBackoff(fn func(attempt int) time.Duration) BatchOption {
	return func(b *Batch) { b.backoff = fn }
}

// NewBatch wraps a provider.
func NewBatch(service Service, opts ...BatchOption) *Batch {
	b := &Batch{
		service:    service,
		sem:        semaphore.NewWeighted(DefaultMaxConcurrent),
		maxRetries: 2,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second
		},
		logger: log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Process runs OCR over all images and returns extracted text keyed by URL.
// Failures are isolated per image: an image whose retries are exhausted maps
// to "" and the rest of the batch is unaffected. Only context cancellation
// aborts the whole batch.
func (b *Batch) Process(ctx context.Context, imageURLs []string) (map[string]string, error) {
	results := make(map[string]string, len(imageURLs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, imageURL := range imageURLs {
		if err := b.sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, fmt.Errorf("ocr batch canceled: %w", err)
		}
		wg.Add(1)
		go func(imageURL string) {
			defer wg.Done()
			defer b.sem.Release(1)

			text, err := b.performWithRetry(ctx, imageURL)
			if err != nil {
				b.logger.Warn("ocr failed for %s: %v", imageURL, err)
				text = ""
			}
			mu.Lock()
			results[imageURL] = text
			mu.Unlock()
		}(imageURL)
	}

	wg.Wait()
	return results, ctx.Err()
}

func (b *Batch) performWithRetry(ctx context.Context, imageURL string) (string, error) {
	if err := validateImageURL(imageURL); err != nil {
		// A malformed URL will never succeed, so no retries.
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(b.backoff(attempt)):
			}
			b.logger.Debug("retrying ocr for %s (attempt %d)", imageURL, attempt+1)
		}
		text, err := b.service.Perform(ctx, imageURL)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func validateImageURL(imageURL string) error {
	u, err := url.Parse(imageURL)
	if err != nil {
		return fmt.Errorf("invalid image url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("image url has no host")
	}
	return nil
}

// imageFormat extracts the lowercase file extension from an image URL,
// ignoring query strings.
func imageFormat(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ""
	}
	path := u.Path
	dot := strings.LastIndex(path, ".")
	if dot < 0 || dot == len(path)-1 {
		return ""
	}
	return strings.ToLower(path[dot+1:])
}
