// Package storage persists the member collection as one serialized blob under a single key.
package storage

import (
	"context"
	"fmt"
	"sync"

	"gitlab.com/dirk.krummacker/membership-service/internal/config"
)

// Slot is a single named key-value entry. Read returns nil data and no error if nothing has
// been written under the key yet. Write replaces the whole value.
type Slot interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// MemorySlot keeps the value in memory. It is used for tests and for throwaway sessions.
type MemorySlot struct {
	mu   sync.Mutex
	data []byte
}

// NewMemorySlot returns an empty slot. If data is given, the slot starts out with that value.
func NewMemorySlot(data ...byte) *MemorySlot {
	s := &MemorySlot{}
	if len(data) > 0 {
		s.data = append([]byte(nil), data...)
	}
	return s
}

func (s *MemorySlot) Read(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, nil
	}
	return append([]byte(nil), s.data...), nil
}

func (s *MemorySlot) Write(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	return nil
}

// Open creates the slot selected by the configuration. The returned function releases the
// resources held by the slot, e.g. database connections.
func Open(ctx context.Context, cfg config.Config) (Slot, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Storage {
	case config.StorageMemory:
		return NewMemorySlot(), noop, nil
	case config.StorageFile:
		slot, err := NewFileSlot(cfg.DataDir, cfg.SlotKey)
		if err != nil {
			return nil, nil, err
		}
		return slot, noop, nil
	case config.StorageMySQL:
		sqlDB, err := CreateDatabase(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("could not reach mysql: %w", err)
		}
		slot, err := NewSQLSlot(sqlDB, cfg.SlotKey)
		if err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		return slot, slot.Close, nil
	case config.StoragePostgres:
		db, err := OpenPostgres(cfg)
		if err != nil {
			return nil, nil, err
		}
		slot, err := NewGormSlot(db, cfg.SlotKey)
		if err != nil {
			return nil, nil, err
		}
		return slot, slot.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}
