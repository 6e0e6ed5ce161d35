package patterns

import (
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()

	store, err := NewFileStore(filepath.Join(t.TempDir(), "patterns.json"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestRecordSuccessMergesFields(t *testing.T) {
	store := newTestStore(t)

	store.RecordSuccess("example.com", map[string]string{
		"name":  "h1.product",
		"price": ".price-x",
	})
	store.RecordSuccess("example.com", map[string]string{
		"price": ".price-y",
		"brand": ".brand",
	})

	entry, ok := store.Get("example.com")
	require.True(t, ok)
	assert.Equal(t, "h1.product", entry.Fields["name"])
	assert.Equal(t, ".price-y", entry.Fields["price"], "latest working selector wins")
	assert.Equal(t, ".brand", entry.Fields["brand"])
}

func TestSuccessCountThrottledPerDay(t *testing.T) {
	store := newTestStore(t)

	day := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return day }

	store.RecordSuccess("example.com", map[string]string{"name": "h1"})
	store.RecordSuccess("example.com", map[string]string{"name": "h1"})

	entry, ok := store.Get("example.com")
	require.True(t, ok)
	assert.Equal(t, 1, entry.SuccessCount, "same-day successes count once")

	store.now = func() time.Time { return day.Add(24 * time.Hour) }
	store.RecordSuccess("example.com", map[string]string{"name": "h1"})

	entry, _ = store.Get("example.com")
	assert.Equal(t, 2, entry.SuccessCount)
}

func TestThrottleAtomicUnderConcurrency(t *testing.T) {
	store := newTestStore(t)

	day := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return day }

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.RecordSuccess("example.com", map[string]string{"name": "h1"})
		}()
	}
	wg.Wait()

	entry, ok := store.Get("example.com")
	require.True(t, ok)
	assert.Equal(t, 1, entry.SuccessCount)
}

func TestPersistAndReload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "patterns.json")

	store, err := NewFileStore(file, slog.Default())
	require.NoError(t, err)

	store.RecordSuccess("example.com", map[string]string{"price": ".price-x"})
	require.NoError(t, store.Close())

	reloaded, err := NewFileStore(file, slog.Default())
	require.NoError(t, err)
	defer reloaded.Close()

	entry, ok := reloaded.Get("example.com")
	require.True(t, ok)
	assert.Equal(t, ".price-x", entry.Fields["price"])
	assert.Equal(t, 1, entry.SuccessCount)
}

func TestGetReturnsCopy(t *testing.T) {
	store := newTestStore(t)
	store.RecordSuccess("example.com", map[string]string{"name": "h1"})

	entry, ok := store.Get("example.com")
	require.True(t, ok)
	entry.Fields["name"] = "mutated"

	fresh, _ := store.Get("example.com")
	assert.Equal(t, "h1", fresh.Fields["name"])
}

func TestGetUnknownDomain(t *testing.T) {
	store := newTestStore(t)

	entry, ok := store.Get("nowhere.example")
	assert.False(t, ok)
	assert.Nil(t, entry)
}
