package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outstaffer/content-finder/internal/models"
)

func TestBatchProcessor_WaitsForEachBatch(t *testing.T) {
	b := NewBatchProcessor(0)
	urls := make([]string, 7)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://x.com/%d", i)
	}

	var mu sync.Mutex
	var events []string
	active, maxActive := 0, 0
	fn := func(_ context.Context, u string) (models.ProcessedResult, error) {
		mu.Lock()
		events = append(events, "start "+u)
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		events = append(events, "end "+u)
		mu.Unlock()
		return models.ProcessedResult{Scrape: &models.ScrapeResult{URL: u, Success: true}}, nil
	}

	submitted := b.Process(context.Background(), urls, fn)
	assert.Equal(t, urls, submitted)
	assert.LessOrEqual(t, maxActive, DefaultBatchSize)

	position := make(map[string]int, len(events))
	for i, e := range events {
		position[e] = i
	}
	batches := [][]string{urls[0:3], urls[3:6], urls[6:7]}
	for i := 1; i < len(batches); i++ {
		for _, prev := range batches[i-1] {
			for _, next := range batches[i] {
				assert.Less(t, position["end "+prev], position["start "+next])
			}
		}
	}
	assert.Len(t, b.Results(), 7)
}

func TestBatchProcessor_IsolatesFailures(t *testing.T) {
	b := NewBatchProcessor(3)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.Process(context.Background(), []string{"https://ok", "https://bad"}, func(_ context.Context, u string) (models.ProcessedResult, error) {
		if u == "https://bad" {
			return models.ProcessedResult{}, errors.New("scrape failed")
		}
		return models.ProcessedResult{Analysis: &models.ArticleAnalysis{Overview: "o"}}, nil
	})

	bad, ok := b.Result("https://bad")
	require.True(t, ok)
	assert.Equal(t, "scrape failed", bad.Error)
	assert.Equal(t, now, bad.ProcessedAt)

	good, ok := b.Result("https://ok")
	require.True(t, ok)
	assert.Equal(t, "o", good.Analysis.Overview)
	assert.Empty(t, good.Error)
}

func TestBatchProcessor_OverwritesAndDedupes(t *testing.T) {
	b := NewBatchProcessor(3)
	calls := 0
	fn := func(_ context.Context, u string) (models.ProcessedResult, error) {
		calls++
		return models.ProcessedResult{Analysis: &models.ArticleAnalysis{Overview: fmt.Sprintf("run %d", calls)}}, nil
	}
	ctx := context.Background()

	submitted := b.Process(ctx, []string{"https://a", "https://a", ""}, fn)
	assert.Equal(t, []string{"https://a"}, submitted)
	b.Process(ctx, []string{"https://a"}, fn)

	results := b.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "run 2", results["https://a"].Analysis.Overview)
}

func TestBatchProcessor_SkipsInFlight(t *testing.T) {
	b := NewBatchProcessor(3)
	started := make(chan struct{})
	release := make(chan struct{})
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		b.Process(ctx, []string{"https://slow"}, func(context.Context, string) (models.ProcessedResult, error) {
			close(started)
			<-release
			return models.ProcessedResult{}, nil
		})
		close(done)
	}()
	<-started

	assert.True(t, b.InFlight("https://slow"))
	submitted := b.Process(ctx, []string{"https://slow", "https://other"}, func(context.Context, string) (models.ProcessedResult, error) {
		return models.ProcessedResult{}, nil
	})
	assert.Equal(t, []string{"https://other"}, submitted)

	close(release)
	<-done
	assert.False(t, b.InFlight("https://slow"))
}

func TestBatchProcessor_ResetDropsStaleResults(t *testing.T) {
	b := NewBatchProcessor(3)
	started := make(chan struct{})
	release := make(chan struct{})
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		b.Process(ctx, []string{"https://old"}, func(context.Context, string) (models.ProcessedResult, error) {
			close(started)
			<-release
			return models.ProcessedResult{}, nil
		})
		close(done)
	}()
	<-started

	b.Reset()
	close(release)
	<-done

	_, ok := b.Result("https://old")
	assert.False(t, ok)
	assert.Empty(t, b.Results())
}

func TestBatchProcessor_ResetAbandonsRemainingBatches(t *testing.T) {
	b := NewBatchProcessor(1)
	var mu sync.Mutex
	var calls []string

	submitted := b.Process(context.Background(), []string{"https://a", "https://b", "https://c"},
		func(_ context.Context, u string) (models.ProcessedResult, error) {
			mu.Lock()
			calls = append(calls, u)
			mu.Unlock()
			if u == "https://a" {
				b.Reset()
			}
			return models.ProcessedResult{}, nil
		})

	assert.Equal(t, []string{"https://a"}, calls)
	assert.Equal(t, []string{"https://a"}, submitted)
	assert.False(t, b.InFlight("https://b"))
	assert.Empty(t, b.Results())
}
