// Package file persists records as a single JSON document on local disk.
package file

import (
	"context"
	"fmt"
	"maps"
	"os"
	"sync"

	cstorage "github.com/c2FmZQ/storage"

	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/storage"
)

// DatabaseFile is the name of the document inside the data directory
const DatabaseFile = "db.json"

type document struct {
	Users map[model.UserID]model.User `json:"users"`
	Rooms map[model.RoomID]model.Room `json:"rooms"`
}

// Storage keeps the whole document in memory and rewrites it on every change.
// A write that fails to reach disk leaves the in-memory document untouched.
type Storage struct {
	mu    sync.RWMutex
	files *cstorage.Storage
	doc   document
}

// New opens (or initializes) the document under dir
func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}

	s := &Storage{
		files: cstorage.New(dir, nil),
		doc: document{
			Users: make(map[model.UserID]model.User),
			Rooms: make(map[model.RoomID]model.Room),
		},
	}

	var doc document
	err := s.files.ReadDataFile(DatabaseFile, &doc)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("%w: ReadDataFile: %w", model.ErrStoreUnavailable, err)
	}

	for id, r := range doc.Rooms {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("room %s: %w", id, err)
		}
	}
	if doc.Users != nil {
		s.doc.Users = doc.Users
	}
	if doc.Rooms != nil {
		s.doc.Rooms = doc.Rooms
	}
	return s, nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc
	next.Users = maps.Clone(s.doc.Users)
	next.Users[user.ID] = *user
	return s.writeLocked(next)
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.doc.Users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return &u, nil
}

func (s *Storage) GetUserByDisplayName(ctx context.Context, displayName string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.doc.Users {
		if u.DisplayName == displayName {
			return &u, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (s *Storage) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*model.User, 0, len(s.doc.Users))
	for _, u := range s.doc.Users {
		users = append(users, &u)
	}
	storage.SortUsers(users)
	return users, nil
}

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	return s.CommitRoom(ctx, room)
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.doc.Rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return r.Clone(), nil
}

func (s *Storage) RoomExists(ctx context.Context, id model.RoomID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.doc.Rooms[id]
	return ok, nil
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]*model.Room, 0, len(s.doc.Rooms))
	for _, r := range s.doc.Rooms {
		rooms = append(rooms, r.Clone())
	}
	storage.SortRooms(rooms)
	return rooms, nil
}

func (s *Storage) CommitRoom(ctx context.Context, room *model.Room, users ...*model.User) error {
	if err := room.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := document{
		Users: maps.Clone(s.doc.Users),
		Rooms: maps.Clone(s.doc.Rooms),
	}
	next.Rooms[room.ID] = *room.Clone()
	for _, u := range users {
		next.Users[u.ID] = *u
	}
	return s.writeLocked(next)
}

func (s *Storage) writeLocked(next document) error {
	if err := s.files.SaveDataFile(DatabaseFile, &next); err != nil {
		return fmt.Errorf("%w: SaveDataFile: %w", model.ErrStoreUnavailable, err)
	}
	s.doc = next
	return nil
}
