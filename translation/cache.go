package translation

import (
	"encoding/json"
	"errors"
	"log/slog"
	"polychat/contract"
	"polychat/domain"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var _ contract.ITranslationCache = (*BadgerCache)(nil)

// CachePrefix starts every translation key.
const CachePrefix = "tr:"

// BadgerCache remembers translations so the same text is not sent twice
// to the provider for the same language pair. Entries expire after ttl.
// Values are JSON encoded domain.CachedTranslation.
type BadgerCache struct {
	db  *badger.DB
	log *slog.Logger
	ttl time.Duration
}

// OpenBadgerCache opens the cache at path, or in memory when path is empty.
func OpenBadgerCache(path string, ttl time.Duration, log *slog.Logger) (*BadgerCache, error) {
	options := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		options = options.WithInMemory(true)
	}
	db, err := badger.Open(options)
	if err != nil {
		return nil, err
	}
	return NewBadgerCache(db, ttl, log), nil
}

func NewBadgerCache(db *badger.DB, ttl time.Duration, log *slog.Logger) *BadgerCache {
	return &BadgerCache{db: db, log: log, ttl: ttl}
}

func (c *BadgerCache) Get(key string) (domain.CachedTranslation, bool) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.log.Debug("Translation cache read failed", "key", key, "error", err)
		}
		return domain.CachedTranslation{}, false
	}
	entry, err := DecodeCacheEntry(value)
	if err != nil {
		c.log.Debug("Translation cache entry unreadable", "key", key, "error", err)
		return domain.CachedTranslation{}, false
	}
	return entry, true
}

func (c *BadgerCache) Set(key string, cached domain.CachedTranslation) error {
	value, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
}

func (c *BadgerCache) Close() error {
	return c.db.Close()
}

// DecodeCacheEntry reads a value written by BadgerCache.Set.
func DecodeCacheEntry(value []byte) (domain.CachedTranslation, error) {
	var entry domain.CachedTranslation
	err := json.Unmarshal(value, &entry)
	return entry, err
}
