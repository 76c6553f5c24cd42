package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketVocabulary = []byte("vocabulary")
	bucketPages      = []byte("pages")
)

var allBuckets = [][]byte{bucketVocabulary, bucketPages}

// vocabularyRecord is the stored form of the tag vocabulary
type vocabularyRecord struct {
	Tags    []string  `msgpack:"tags"`
	SavedAt time.Time `msgpack:"saved_at"`
}

// pageRecord is the stored form of one fetched page
type pageRecord struct {
	Records  []domain.VideoRecord `msgpack:"records"`
	Total    int                  `msgpack:"total"`
	Received int                  `msgpack:"received"`
	SavedAt  time.Time            `msgpack:"saved_at"`
}

// CatalogStore implements domain.CatalogStore using BoltDB with msgpack
// encoded values.
type CatalogStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte

	now func() time.Time
}

// NewCatalogStore opens the store under baseCacheDir, namespaced by the
// catalog base URL. An empty baseCacheDir keeps everything in memory.
func NewCatalogStore(baseCacheDir, baseURL string) (*CatalogStore, error) {
	if baseCacheDir == "" {
		// Memory-only mode (no persistence)
		return &CatalogStore{cache: make(map[string][]byte), now: time.Now}, nil
	}

	dir := baseCacheDir
	if baseURL != "" {
		dir = filepath.Join(baseCacheDir, hashBaseURL(baseURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "reel.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &CatalogStore{db: db, cache: make(map[string][]byte), now: time.Now}, nil
}

func hashBaseURL(baseURL string) string {
	normalized := strings.TrimRight(strings.ToLower(baseURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *CatalogStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *CatalogStore) get(bucket []byte, key string, dest interface{}) bool {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return msgpack.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return msgpack.Unmarshal(data, dest) == nil
}

func (s *CatalogStore) set(bucket []byte, key string, value interface{}) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *CatalogStore) clearBucket(bucket []byte) {
	s.mu.Lock()
	prefix := string(bucket) + ":"
	for k := range s.cache {
		if strings.HasPrefix(k, prefix) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucket)
		return err
	})
}

// === Vocabulary ===

// GetVocabulary returns the stored tags and when they were saved
func (s *CatalogStore) GetVocabulary() ([]string, time.Time, bool) {
	var rec vocabularyRecord
	if !s.get(bucketVocabulary, "list", &rec) {
		return nil, time.Time{}, false
	}
	return rec.Tags, rec.SavedAt, true
}

func (s *CatalogStore) SaveVocabulary(tags []string) error {
	return s.set(bucketVocabulary, "list", vocabularyRecord{Tags: tags, SavedAt: s.now()})
}

// === Pages (key: page:{offset}:{limit}) ===

func pageKey(offset, limit int) string {
	// Zero padded so cursor order follows offset
	return fmt.Sprintf("page:%010d:%d", offset, limit)
}

func (s *CatalogStore) GetPage(offset, limit int) (domain.Page, bool) {
	var rec pageRecord
	if !s.get(bucketPages, pageKey(offset, limit), &rec) {
		return domain.Page{}, false
	}
	return domain.Page{Records: rec.Records, Total: rec.Total, Received: rec.Received}, true
}

func (s *CatalogStore) SavePage(offset, limit int, page domain.Page) error {
	return s.set(bucketPages, pageKey(offset, limit), pageRecord{
		Records:  page.Records,
		Total:    page.Total,
		Received: page.Count(),
		SavedAt:  s.now(),
	})
}

// === Invalidation ===

// InvalidatePages drops every stored page, keeping the vocabulary
func (s *CatalogStore) InvalidatePages() {
	s.clearBucket(bucketPages)
}

func (s *CatalogStore) InvalidateAll() {
	for _, bucket := range allBuckets {
		s.clearBucket(bucket)
	}
}

var _ domain.CatalogStore = (*CatalogStore)(nil)
