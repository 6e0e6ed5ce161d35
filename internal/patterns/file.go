package patterns

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"
)

// FileStore keeps patterns in memory and mirrors them to a single JSON
// document on disk. Reads return copies so callers never observe a torn
// entry while a concurrent extraction records a success.
type FileStore struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	filename string
	logger   *slog.Logger

	persist sync.WaitGroup
	saveMu  sync.Mutex
	now     func() time.Time
}

func NewFileStore(filename string, logger *slog.Logger) (*FileStore, error) {
	fs := &FileStore{
		entries:  make(map[string]*Entry),
		filename: filename,
		logger:   logger.With("component", "pattern_store"),
		now:      time.Now,
	}

	if err := fs.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return fs, nil
}

func (fs *FileStore) Get(domain string) (*Entry, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entry, ok := fs.entries[domain]
	if !ok {
		return nil, false
	}
	return entry.clone(), true
}

// RecordSuccess merges the observed selector-per-field mapping into the
// domain's entry. New fields are added, existing fields are overwritten
// with the latest working selector. The success counter and timestamp
// advance at most once per UTC calendar day.
func (fs *FileStore) RecordSuccess(domain string, fields map[string]string) {
	if domain == "" || len(fields) == 0 {
		return
	}

	fs.mu.Lock()

	entry, ok := fs.entries[domain]
	if !ok {
		entry = &Entry{Domain: domain, Fields: make(map[string]string)}
		fs.entries[domain] = entry
	}

	for field, selector := range fields {
		if selector != "" {
			entry.Fields[field] = selector
		}
	}

	now := fs.now()
	if !sameUTCDay(entry.LastSuccess, now) {
		entry.LastSuccess = now
		entry.SuccessCount++
	}

	snapshot := fs.snapshotLocked()
	fs.mu.Unlock()

	fs.persist.Add(1)
	go func() {
		defer fs.persist.Done()
		if err := fs.save(snapshot); err != nil {
			fs.logger.Error("failed to persist patterns", "error", err, "domain", domain)
		}
	}()
}

// Close waits for in-flight persistence to finish.
func (fs *FileStore) Close() error {
	fs.persist.Wait()
	return nil
}

func (fs *FileStore) snapshotLocked() map[string]*Entry {
	snapshot := make(map[string]*Entry, len(fs.entries))
	for domain, entry := range fs.entries {
		snapshot[domain] = entry.clone()
	}
	return snapshot
}

func (fs *FileStore) save(snapshot map[string]*Entry) error {
	fs.saveMu.Lock()
	defer fs.saveMu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	// Write to temp file first for atomicity.
	tmpFile := fs.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpFile, fs.filename)
}

func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.filename)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &fs.entries)
}
