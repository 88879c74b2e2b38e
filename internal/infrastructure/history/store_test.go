package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/pingtools/usersync/internal/domain/bulk"
	"github.com/pingtools/usersync/internal/infrastructure/history"
)

func newStore(t *testing.T) *history.Store {
	t.Helper()
	return history.NewStore(filepath.Join(t.TempDir(), "history.json"))
}

func TestAppendAndListNewestFirst(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, domain.HistoryEntry{
			ID:        string(rune('a' + i)),
			Type:      domain.OperationImport,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, total, err := store.List(ctx, 1, 10, "")
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Equal(t, "c", entries[0].ID)
	require.Equal(t, "a", entries[2].ID)
}

func TestListFiltersByType(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Append(ctx, domain.HistoryEntry{ID: "1", Type: domain.OperationImport, Timestamp: now}))
	require.NoError(t, store.Append(ctx, domain.HistoryEntry{ID: "2", Type: domain.OperationDelete, Timestamp: now}))

	entries, total, err := store.List(ctx, 1, 10, domain.OperationDelete)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "2", entries[0].ID)
}

func TestListPaginates(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, domain.HistoryEntry{
			ID:        string(rune('a' + i)),
			Type:      domain.OperationExport,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}

	page2, total, err := store.List(ctx, 2, 2, "")
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, page2, 2)
	require.Equal(t, "c", page2[0].ID)

	empty, total, err := store.List(ctx, 9, 2, "")
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Empty(t, empty)
}

func TestListOnMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	entries, total, err := store.List(context.Background(), 1, 10, "")
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, entries)
}
