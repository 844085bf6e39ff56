package voc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/outstaffer/content-finder/internal/mocks"
	"github.com/outstaffer/content-finder/internal/storage"
)

func TestHistory_MarkPersists(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	h := NewHistory(store)
	require.NoError(t, h.Mark(ctx, "SMB Leaders", []string{"b", "a", ""}))

	var record historyRecord
	require.NoError(t, storage.RetrieveJSON(ctx, store, "history/smb_leaders.json", &record))
	assert.Equal(t, []string{"a", "b"}, record.PostIDs)
	assert.Equal(t, "SMB Leaders", record.Segment)

	fresh := NewHistory(store)
	seen, err := fresh.Seen(ctx, "smb leaders")
	require.NoError(t, err)
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])
	assert.False(t, seen["c"])
}

func TestHistory_SeenReturnsCopy(t *testing.T) {
	h := NewHistory(nil)
	ctx := context.Background()
	require.NoError(t, h.Mark(ctx, "Tech", []string{"x"}))

	seen, err := h.Seen(ctx, "Tech")
	require.NoError(t, err)
	seen["y"] = true

	again, err := h.Seen(ctx, "Tech")
	require.NoError(t, err)
	assert.Len(t, again, 1)
}

func TestHistory_LoadError(t *testing.T) {
	store := &mocks.Storage{}
	store.On("Retrieve", mock.Anything, "history/tech.json").Return(nil, errors.New("disk gone"))

	_, err := NewHistory(store).Seen(context.Background(), "Tech")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestHistory_FailedPersistDoesNotMarkSeen(t *testing.T) {
	store := &mocks.Storage{}
	store.On("Retrieve", mock.Anything, "history/tech.json").Return(nil, storage.ErrNotFound).Once()
	store.On("Store", mock.Anything, "history/tech.json", mock.Anything).Return(errors.New("quota exceeded")).Once()
	store.On("Store", mock.Anything, "history/tech.json", mock.Anything).Return(nil).Once()
	ctx := context.Background()

	h := NewHistory(store)
	err := h.Mark(ctx, "Tech", []string{"x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	seen, err := h.Seen(ctx, "Tech")
	require.NoError(t, err)
	assert.Empty(t, seen)

	require.NoError(t, h.Mark(ctx, "Tech", []string{"x"}))
	seen, err = h.Seen(ctx, "Tech")
	require.NoError(t, err)
	assert.True(t, seen["x"])
	store.AssertExpectations(t)
}
