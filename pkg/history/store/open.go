package store

import (
	"context"
	"time"
)

// DriverMemory selects the in-memory store.
const DriverMemory = "memory"

// Open creates the store for driver. "memory" returns a MemoryStore; the
// SQL drivers return a SQLStore with the schema applied.
func Open(ctx context.Context, driver, dsn string, maxOpenConns int, busyTimeout time.Duration) (Store, error) {
	if driver == DriverMemory {
		return NewMemoryStore(), nil
	}
	return NewSQLStore(ctx, SQLConfig{
		Driver:       driver,
		DSN:          dsn,
		MaxOpenConns: maxOpenConns,
		BusyTimeout:  busyTimeout,
	})
}
