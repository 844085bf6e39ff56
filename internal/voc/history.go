package voc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/outstaffer/content-finder/internal/config"
	"github.com/outstaffer/content-finder/internal/storage"
)

type historyRecord struct {
	Segment   string    `json:"segment"`
	PostIDs   []string  `json:"post_ids"`
	UpdatedAt time.Time `json:"updated_at"`
}

// History remembers which Reddit posts were already processed for a segment
type History struct {
	storage storage.StorageInterface

	mu       sync.Mutex
	segments map[string]map[string]bool
}

// NewHistory creates a history store. A nil store keeps history in memory only.
func NewHistory(store storage.StorageInterface) *History {
	return &History{storage: store, segments: make(map[string]map[string]bool)}
}

// Seen returns the processed post ids of a segment
func (h *History) Seen(ctx context.Context, segmentName string) (map[string]bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids, err := h.load(ctx, segmentName)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for id := range ids {
		out[id] = true
	}
	return out, nil
}

// Mark records post ids as processed
func (h *History) Mark(ctx context.Context, segmentName string, postIDs []string) error {
	if len(postIDs) == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ids, err := h.load(ctx, segmentName)
	if err != nil {
		return err
	}
	merged := make(map[string]bool, len(ids)+len(postIDs))
	for id := range ids {
		merged[id] = true
	}
	for _, id := range postIDs {
		if id != "" {
			merged[id] = true
		}
	}

	if h.storage != nil {
		record := historyRecord{Segment: segmentName, PostIDs: make([]string, 0, len(merged)), UpdatedAt: time.Now().UTC()}
		for id := range merged {
			record.PostIDs = append(record.PostIDs, id)
		}
		sort.Strings(record.PostIDs)

		if err := storage.StoreJSON(ctx, h.storage, historyKey(segmentName), record); err != nil {
			return fmt.Errorf("failed to persist history for %s: %w", segmentName, err)
		}
	}

	h.segments[config.Slug(segmentName)] = merged
	return nil
}

func (h *History) load(ctx context.Context, segmentName string) (map[string]bool, error) {
	slug := config.Slug(segmentName)
	if ids, ok := h.segments[slug]; ok {
		return ids, nil
	}

	ids := make(map[string]bool)
	if h.storage != nil {
		var record historyRecord
		err := storage.RetrieveJSON(ctx, h.storage, historyKey(segmentName), &record)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("failed to load history for %s: %w", segmentName, err)
		default:
			for _, id := range record.PostIDs {
				ids[id] = true
			}
		}
	}

	h.segments[slug] = ids
	return ids, nil
}

func historyKey(segmentName string) string {
	return fmt.Sprintf("history/%s.json", config.Slug(segmentName))
}
