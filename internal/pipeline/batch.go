package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/outstaffer/content-finder/internal/models"
)

// DefaultBatchSize is the number of URLs processed concurrently
const DefaultBatchSize = 3

// ProcessFunc produces the processed result of one URL
type ProcessFunc func(ctx context.Context, url string) (models.ProcessedResult, error)

// BatchProcessor processes URLs in fixed-size batches and keeps the latest result per URL
type BatchProcessor struct {
	size int
	now  func() time.Time

	mu         sync.Mutex
	generation int
	inFlight   map[string]bool
	results    map[string]models.ProcessedResult
}

// NewBatchProcessor creates a processor. A size below 1 uses DefaultBatchSize.
func NewBatchProcessor(size int) *BatchProcessor {
	if size < 1 {
		size = DefaultBatchSize
	}
	return &BatchProcessor{
		size:     size,
		now:      time.Now,
		inFlight: make(map[string]bool),
		results:  make(map[string]models.ProcessedResult),
	}
}

// Process runs fn for every URL not already in flight, one batch at a time.
// A failing URL is recorded with its error and does not stop its siblings.
// Batches not yet started when Reset is called are abandoned.
// The URLs actually submitted are returned in order.
func (b *BatchProcessor) Process(ctx context.Context, urls []string, fn ProcessFunc) []string {
	b.mu.Lock()
	generation := b.generation
	var queued []string
	for _, u := range urls {
		if u == "" || b.inFlight[u] {
			continue
		}
		b.inFlight[u] = true
		queued = append(queued, u)
	}
	b.mu.Unlock()

	if skipped := len(urls) - len(queued); skipped > 0 {
		logrus.WithFields(logrus.Fields{
			"operation": "process_urls",
			"skipped":   skipped,
		}).Debug("Skipping URLs already in flight")
	}

	for start := 0; start < len(queued); start += b.size {
		if !b.current(generation) {
			logrus.WithFields(logrus.Fields{
				"operation": "process_urls",
				"abandoned": len(queued) - start,
			}).Debug("Processor was reset, abandoning remaining batches")
			return queued[:start]
		}

		end := start + b.size
		if end > len(queued) {
			end = len(queued)
		}

		var g errgroup.Group
		for _, u := range queued[start:end] {
			u := u
			g.Go(func() error {
				result, err := fn(ctx, u)
				b.record(generation, u, result, err)
				return nil
			})
		}
		_ = g.Wait()
	}
	return queued
}

func (b *BatchProcessor) current(generation int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return generation == b.generation
}

func (b *BatchProcessor) record(generation int, url string, result models.ProcessedResult, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if generation != b.generation {
		return
	}
	delete(b.inFlight, url)

	if err != nil {
		result = models.ProcessedResult{Error: err.Error()}
	}
	if result.ProcessedAt.IsZero() {
		result.ProcessedAt = b.now().UTC()
	}
	b.results[url] = result
}

// InFlight reports whether url is being processed
func (b *BatchProcessor) InFlight(url string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight[url]
}

// Result returns the latest result for url
func (b *BatchProcessor) Result(url string) (models.ProcessedResult, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.results[url]
	return r, ok
}

// Results returns a copy of every result keyed by URL
func (b *BatchProcessor) Results() map[string]models.ProcessedResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]models.ProcessedResult, len(b.results))
	for k, v := range b.results {
		out[k] = v
	}
	return out
}

// Reset discards all results. Work still in flight is dropped when it finishes.
func (b *BatchProcessor) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
	b.inFlight = make(map[string]bool)
	b.results = make(map[string]models.ProcessedResult)
}
