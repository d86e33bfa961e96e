package infra

import (
	"github.com/dgraph-io/badger/v4"
)

// OpenBadger opens the embedded session store. An empty dir opens it in memory.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	return badger.Open(opts)
}
