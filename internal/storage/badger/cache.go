// Package badger implements interfaces.DedupCache over an embedded
// dgraph-io/badger/v4 store. The App opens and closes it; the Dedup
// Service and the Operation Registry keep their state in memory.
package badger

import (
	"context"
	"fmt"
	"os"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/atsforge/internal/common"
	"github.com/ternarybob/atsforge/internal/interfaces"
)

// Cache wraps a badger.DB opened at the configured directory.
type Cache struct {
	db     *badgerdb.DB
	logger arbor.ILogger
}

// New opens (creating if absent) the Badger store at config.Dir.
func New(logger arbor.ILogger, config *common.BadgerConfig) (*Cache, error) {
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating badger directory: %w", err)
	}

	opts := badgerdb.DefaultOptions(config.Dir).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger database at %s: %w", config.Dir, err)
	}

	logger.Debug().Str("dir", config.Dir).Msg("badger dedup cache opened")
	return &Cache{db: db, logger: logger}, nil
}

var _ interfaces.DedupCache = (*Cache)(nil)

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			value = append([]byte(nil), v...)
			return nil
		})
	})
	if err == badgerdb.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting badger key %s: %w", key, err)
	}
	return value, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	err := c.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("setting badger key %s: %w", key, err)
	}
	return nil
}

// ListKeysWithPrefix iterates key-only (no value copy) for cheap
// recovery scans, e.g. listing every "domain:" or "ats:" entry at
// startup.
func (c *Cache) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := c.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, string(it.Item().Key()))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing badger keys with prefix %s: %w", prefix, err)
	}
	return keys, nil
}

func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
