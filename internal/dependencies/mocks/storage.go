package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/storage"
)

// errInjected is the cause wrapped into failures produced by FlakyStorage
var errInjected = errors.New("injected failure")

// FlakyStorage wraps a real store and fails writes on demand
type FlakyStorage struct {
	storage.Storage

	failWrites atomic.Bool
	commits    atomic.Int64
}

// Ensure FlakyStorage implements the interface
var _ storage.Storage = (*FlakyStorage)(nil)

// NewFlakyStorage wraps inner
func NewFlakyStorage(inner storage.Storage) *FlakyStorage {
	return &FlakyStorage{Storage: inner}
}

// FailWrites toggles whether room and user writes return ErrStoreUnavailable
func (f *FlakyStorage) FailWrites(fail bool) {
	f.failWrites.Store(fail)
}

// Commits returns how many CommitRoom calls carried user records
func (f *FlakyStorage) Commits() int64 {
	return f.commits.Load()
}

func (f *FlakyStorage) SaveUser(ctx context.Context, user *model.User) error {
	if f.failWrites.Load() {
		return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, errInjected)
	}
	return f.Storage.SaveUser(ctx, user)
}

func (f *FlakyStorage) SaveRoom(ctx context.Context, room *model.Room) error {
	return f.CommitRoom(ctx, room)
}

func (f *FlakyStorage) CommitRoom(ctx context.Context, room *model.Room, users ...*model.User) error {
	if f.failWrites.Load() {
		return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, errInjected)
	}
	if len(users) > 0 {
		f.commits.Add(1)
	}
	return f.Storage.CommitRoom(ctx, room, users...)
}
