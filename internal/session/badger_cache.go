package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCache keeps session blobs in an embedded badger database, for
// single-node deployments without Redis.
type BadgerCache struct {
	db *badger.DB
}

func NewBadgerCache(db *badger.DB) *BadgerCache { return &BadgerCache{db: db} }

var _ Cache = (*BadgerCache)(nil)

func (c *BadgerCache) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrCacheMiss
	}
	return out, err
}

func (c *BadgerCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

func (c *BadgerCache) Delete(_ context.Context, key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (c *BadgerCache) FindKey(_ context.Context, substr string) (string, error) {
	found := ""
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := string(it.Item().KeyCopy(nil))
			if strings.Contains(k, substr) {
				found = k
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", ErrCacheMiss
	}
	return found, nil
}
