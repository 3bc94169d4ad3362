package repository

import (
	"context"

	"github.com/labspace/labnav/internal/domain/journal"
)

// KVRepository manages raw key/value persistence for a storage tier
type KVRepository interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// JournalRepository manages event journal persistence
type JournalRepository interface {
	Log(ctx context.Context, event *journal.Event) error
	List(ctx context.Context, opts journal.ListOptions) ([]journal.Event, error)
}
