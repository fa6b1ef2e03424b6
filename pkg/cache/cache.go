// Package cache provides a durable key/value store for previously
// fetched response payloads, used to serve content while offline.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	errs "streamnet/pkg/errors"
	"streamnet/pkg/logger"
)

// entryPrefix namespaces payload records inside the database so other
// record kinds can share it later without a format change.
const entryPrefix = "e:"

// ErrNotFound is returned by Get when no entry exists for the key.
// A miss is not a storage failure.
var ErrNotFound = errors.New("cache: entry not found")

// Entry is a persisted copy of a previously fetched response payload
type Entry struct {
	Key      string    `json:"key"`
	Payload  []byte    `json:"payload"`
	StoredAt time.Time `json:"stored_at"`
}

// Store is a leveldb-backed response cache. It is safe for concurrent
// use; writes to the same key are last-writer-wins.
type Store struct {
	db     *leveldb.DB
	dir    string
	logger logger.Logger
}

// Open opens (or creates) the cache database under dir
func Open(dir string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.Storage(fmt.Errorf("failed to create cache directory: %w", err))
	}

	db, err := leveldb.OpenFile(filepath.Join(dir, "responses"), nil)
	if err != nil {
		return nil, errs.Storage(fmt.Errorf("failed to open cache database: %w", err))
	}

	log.DebugWithFields("response cache opened", map[string]interface{}{
		"dir": dir,
	})

	return &Store{db: db, dir: dir, logger: log}, nil
}

// Put stores payload under key, overwriting any existing entry
func (s *Store) Put(key string, payload []byte) error {
	entry := Entry{
		Key:      key,
		Payload:  payload,
		StoredAt: time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return errs.Storage(fmt.Errorf("failed to encode cache entry: %w", err))
	}

	if err := s.db.Put([]byte(entryPrefix+key), data, nil); err != nil {
		return errs.Storage(fmt.Errorf("failed to write cache entry: %w", err))
	}

	s.logger.DebugWithFields("cached response payload", map[string]interface{}{
		"key":  key,
		"size": len(payload),
	})

	return nil
}

// Get returns the entry stored under key, or ErrNotFound
func (s *Store) Get(key string) (Entry, error) {
	data, err := s.db.Get([]byte(entryPrefix+key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, errs.Storage(fmt.Errorf("failed to read cache entry: %w", err))
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, errs.Storage(fmt.Errorf("failed to decode cache entry: %w", err))
	}

	return entry, nil
}

// List returns all cached entries, sorted by key. Used to hydrate the
// offline content view.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry

	it := s.db.NewIterator(util.BytesPrefix([]byte(entryPrefix)), nil)
	defer it.Release()

	for it.Next() {
		var entry Entry
		if err := json.Unmarshal(it.Value(), &entry); err != nil {
			s.logger.WarnWithFields("skipping undecodable cache entry", map[string]interface{}{
				"key": strings.TrimPrefix(string(it.Key()), entryPrefix),
			})
			continue
		}
		entries = append(entries, entry)
	}
	if err := it.Error(); err != nil {
		return nil, errs.Storage(fmt.Errorf("failed to scan cache: %w", err))
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	if err := s.db.Delete([]byte(entryPrefix+key), nil); err != nil {
		return errs.Storage(fmt.Errorf("failed to delete cache entry: %w", err))
	}
	return nil
}

// Len returns the number of cached entries
func (s *Store) Len() (int, error) {
	count := 0
	it := s.db.NewIterator(util.BytesPrefix([]byte(entryPrefix)), nil)
	defer it.Release()
	for it.Next() {
		count++
	}
	if err := it.Error(); err != nil {
		return 0, errs.Storage(fmt.Errorf("failed to scan cache: %w", err))
	}
	return count, nil
}

// Close releases the underlying database
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errs.Storage(fmt.Errorf("failed to close cache database: %w", err))
	}
	return nil
}

// Key derives a deterministic cache key from an endpoint name and its
// call-time parameters.
func Key(endpoint string, params map[string]string) string {
	if len(params) == 0 {
		return endpoint
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(endpoint)
	for _, k := range keys {
		b.WriteByte('?')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}
