package ocr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu       sync.Mutex
	calls    map[string]int
	perform  func(imageURL string, attempt int) (string, error)
	inflight atomic.Int32
	peak     atomic.Int32
}

func newFakeService(perform func(imageURL string, attempt int) (string, error)) *fakeService {
	return &fakeService{calls: make(map[string]int), perform: perform}
}

func (f *fakeService) Perform(ctx context.Context, imageURL string) (string, error) {
	cur := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		peak := f.peak.Load()
		if cur <= peak || f.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.calls[imageURL]++
	attempt := f.calls[imageURL]
	f.mu.Unlock()

	return f.perform(imageURL, attempt)
}

func (f *fakeService) callCount(imageURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[imageURL]
}

func noBackoff() BatchOption {
	return withBackoff(func(int) time.Duration { return 0 })
}

func TestBatchProcess(t *testing.T) {
	svc := newFakeService(func(imageURL string, attempt int) (string, error) {
		return "text for " + imageURL, nil
	})
	batch := NewBatch(svc, noBackoff())

	urls := []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}
	results, err := batch.Process(context.Background(), urls)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"https://cdn.example.com/a.jpg": "text for https://cdn.example.com/a.jpg",
		"https://cdn.example.com/b.jpg": "text for https://cdn.example.com/b.jpg",
	}, results)
}

func TestBatchBoundsConcurrency(t *testing.T) {
	svc := newFakeService(func(imageURL string, attempt int) (string, error) {
		return "ok", nil
	})
	batch := NewBatch(svc, WithMaxConcurrent(2), noBackoff())

	urls := make([]string, 12)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://cdn.example.com/%d.jpg", i)
	}
	_, err := batch.Process(context.Background(), urls)
	require.NoError(t, err)
	assert.LessOrEqual(t, svc.peak.Load(), int32(2))
}

func TestBatchRetriesThenSucceeds(t *testing.T) {
	svc := newFakeService(func(imageURL string, attempt int) (string, error) {
		if attempt < 3 {
			return "", errors.New("timeout")
		}
		return "finally", nil
	})
	batch := NewBatch(svc, WithMaxRetries(2), noBackoff())

	results, err := batch.Process(context.Background(), []string{"https://cdn.example.com/a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "finally", results["https://cdn.example.com/a.jpg"])
	assert.Equal(t, 3, svc.callCount("https://cdn.example.com/a.jpg"))
}

func TestBatchIsolatesFailures(t *testing.T) {
	svc := newFakeService(func(imageURL string, attempt int) (string, error) {
		if imageURL == "https://cdn.example.com/broken.jpg" {
			return "", errors.New("server error")
		}
		return "ok", nil
	})
	batch := NewBatch(svc, WithMaxRetries(1), noBackoff())

	results, err := batch.Process(context.Background(), []string{
		"https://cdn.example.com/good.jpg",
		"https://cdn.example.com/broken.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", results["https://cdn.example.com/good.jpg"])
	assert.Empty(t, results["https://cdn.example.com/broken.jpg"])
	assert.Equal(t, 2, svc.callCount("https://cdn.example.com/broken.jpg"))
}

func TestBatchRejectsBadSchemeWithoutCalling(t *testing.T) {
	svc := newFakeService(func(imageURL string, attempt int) (string, error) {
		return "ok", nil
	})
	batch := NewBatch(svc, noBackoff())

	results, err := batch.Process(context.Background(), []string{
		"ftp://cdn.example.com/a.jpg",
		"data:image/png;base64,xxxx",
	})
	require.NoError(t, err)
	assert.Empty(t, results["ftp://cdn.example.com/a.jpg"])
	assert.Zero(t, svc.callCount("ftp://cdn.example.com/a.jpg"), "invalid urls never reach the provider")
	assert.Zero(t, svc.callCount("data:image/png;base64,xxxx"))
}

func TestBatchCanceled(t *testing.T) {
	svc := newFakeService(func(imageURL string, attempt int) (string, error) {
		return "ok", nil
	})
	batch := NewBatch(svc, WithMaxConcurrent(1), noBackoff())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := batch.Process(ctx, []string{"https://cdn.example.com/a.jpg"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImageFormat(t *testing.T) {
	cases := map[string]string{
		"https://cdn.example.com/a.JPG":              "jpg",
		"https://cdn.example.com/a.png?w=300&h=200":  "png",
		"https://cdn.example.com/path/deep/file.pdf": "pdf",
		"https://cdn.example.com/noext":              "",
		"https://cdn.example.com/trailing.":          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, imageFormat(in), in)
	}
}
