// Package store is the client's best-effort persistence layer.
//
// Values are JSON encoded and written to one of two tiers. Durable keys survive
// restarts (navigation state, code backups); volatile keys live for one session.
// No operation returns an error: failures are logged and reported as false so
// that persistence never blocks the primary workflow.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/labspace/labnav/internal/metrics"
	"github.com/labspace/labnav/internal/repository"
)

// Tier names a storage lifetime.
type Tier string

const (
	Durable  Tier = "durable"
	Volatile Tier = "volatile"
)

// DefaultMaxValueBytes bounds a single encoded value.
const DefaultMaxValueBytes = 1 << 20

// Config wires the tiers to their backends.
type Config struct {
	Durable       repository.KVRepository
	Volatile      repository.KVRepository
	MaxValueBytes int
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

// Store reads and writes JSON values on two tiers.
type Store struct {
	tiers         map[Tier]repository.KVRepository
	maxValueBytes int
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// New creates a Store. A missing tier backend falls back to process memory.
func New(cfg Config) *Store {
	durable := cfg.Durable
	if durable == nil {
		durable = NewMemoryRepository()
	}
	volatile := cfg.Volatile
	if volatile == nil {
		volatile = NewMemoryRepository()
	}
	limit := cfg.MaxValueBytes
	if limit <= 0 {
		limit = DefaultMaxValueBytes
	}
	return &Store{
		tiers: map[Tier]repository.KVRepository{
			Durable:  durable,
			Volatile: volatile,
		},
		maxValueBytes: limit,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
	}
}

// Get decodes the value under key into out. It returns false when the key is
// missing or cannot be read.
func (s *Store) Get(ctx context.Context, tier Tier, key string, out any) bool {
	repo, err := s.repo(tier)
	if err != nil {
		s.fail(tier, "get", key, err)
		return false
	}
	data, ok, err := repo.Get(ctx, key)
	if err != nil {
		s.fail(tier, "get", key, err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.fail(tier, "decode", key, err)
		return false
	}
	return true
}

// Set encodes value and stores it under key.
func (s *Store) Set(ctx context.Context, tier Tier, key string, value any) bool {
	repo, err := s.repo(tier)
	if err != nil {
		s.fail(tier, "set", key, err)
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.fail(tier, "encode", key, err)
		return false
	}
	if len(data) > s.maxValueBytes {
		s.fail(tier, "set", key, fmt.Errorf("%w: %d bytes", repository.ErrValueTooLarge, len(data)))
		return false
	}
	if err := repo.Put(ctx, key, data); err != nil {
		s.fail(tier, "set", key, err)
		return false
	}
	return true
}

// Remove deletes key. Removing a missing key succeeds.
func (s *Store) Remove(ctx context.Context, tier Tier, key string) bool {
	repo, err := s.repo(tier)
	if err != nil {
		s.fail(tier, "remove", key, err)
		return false
	}
	if err := repo.Delete(ctx, key); err != nil {
		s.fail(tier, "remove", key, err)
		return false
	}
	return true
}

func (s *Store) repo(tier Tier) (repository.KVRepository, error) {
	repo, ok := s.tiers[tier]
	if !ok {
		return nil, fmt.Errorf("unknown tier %q", tier)
	}
	return repo, nil
}

func (s *Store) fail(tier Tier, op, key string, err error) {
	s.metrics.StoreError(string(tier), op)
	if s.logger != nil {
		s.logger.Warn("persistence failed", "tier", tier, "op", op, "key", key, "error", err)
	}
}
