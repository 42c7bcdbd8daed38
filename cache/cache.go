//go:generate go run go.uber.org/mock/mockgen -source=cache.go -destination=../mocks/mock_cache.go -package=mocks
package cache

import (
	"log/slog"
	"time"

	"chat-relay/observability"

	"github.com/dgraph-io/badger/v4"
)

// ICache is the read-through layer in front of the store. It is an
// optimization, never a correctness dependency: Get degrades to a miss on
// any engine failure so callers fall back to the store of record.
type ICache interface {
	// Get returns the stored value when present and unexpired.
	Get(key string) ([]byte, bool)
	// Set stores value with the given TTL. A zero ttl applies the default.
	Set(key string, value []byte, ttl time.Duration) error
	// Delete removes the entry; deleting an absent key is not an error.
	Delete(key string) error
	// DeletePrefix atomically removes every entry whose key starts with
	// prefix. It is a single engine operation, never enumerate-then-delete.
	DeletePrefix(prefix string) error
}

// BadgerCache keeps entries in an in-memory BadgerDB keyspace. Expiry uses
// Badger's native entry TTL, so an expired entry is never served. Prefix
// invalidation maps to DropPrefix, which is atomic with respect to
// concurrent single-key reads.
type BadgerCache struct {
	db         *badger.DB
	log        *slog.Logger
	metrics    *observability.Metrics
	defaultTTL time.Duration
}

func NewBadgerCache(log *slog.Logger, metrics *observability.Metrics,
	defaultTTL time.Duration) (*BadgerCache, error) {
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, err
	}
	return &BadgerCache{
		db:         db,
		log:        log,
		metrics:    metrics,
		defaultTTL: defaultTTL,
	}, nil
}

func (c *BadgerCache) Get(key string) ([]byte, bool) {
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
		if err != badger.ErrKeyNotFound {
			c.log.Warn("Cache read failed, treating as miss", "key", key, "error", err)
		}
		c.metrics.CacheMisses.Inc()
		c.log.Debug("Cache miss", "key", key)
		return nil, false
	}
	c.metrics.CacheHits.Inc()
	c.log.Debug("Cache hit", "key", key)
	return value, true
}

func (c *BadgerCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return err
	}
	c.metrics.CacheSets.Inc()
	c.log.Debug("Cache set", "key", key, "ttl", ttl)
	return nil
}

func (c *BadgerCache) Delete(key string) error {
	// Badger's Delete on an absent key is a no-op, matching the contract.
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return err
	}
	c.metrics.CacheDeletes.Inc()
	c.log.Debug("Cache deleted", "key", key)
	return nil
}

func (c *BadgerCache) DeletePrefix(prefix string) error {
	if err := c.db.DropPrefix([]byte(prefix)); err != nil {
		return err
	}
	c.metrics.CacheDeletes.Inc()
	c.log.Debug("Cache prefix dropped", "prefix", prefix)
	return nil
}

func (c *BadgerCache) Close() error {
	return c.db.Close()
}
