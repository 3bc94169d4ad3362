package mocks

import (
	"context"

	"github.com/labspace/labnav/internal/domain/journal"
	"github.com/stretchr/testify/mock"
)

// KVRepository is a mock for repository.KVRepository.
type KVRepository struct {
	mock.Mock
}

func (m *KVRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	if value, ok := args.Get(0).([]byte); ok {
		return value, args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *KVRepository) Put(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *KVRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// JournalRepository is a mock for repository.JournalRepository.
type JournalRepository struct {
	mock.Mock
}

func (m *JournalRepository) Log(ctx context.Context, event *journal.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *JournalRepository) List(ctx context.Context, opts journal.ListOptions) ([]journal.Event, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]journal.Event); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
