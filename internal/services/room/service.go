// Package room owns room creation, lookup and the per-room critical section
// shared by every service that mutates a room.
package room

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/duelrooms/internal/dependencies/clock"
	"github.com/mcoot/duelrooms/internal/dependencies/random"
	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/storage"
)

const (
	// CodeLength is the length of generated room codes
	CodeLength = 6
	// CodeAlphabet is the characters used in room codes (avoid confusing chars)
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Notifier receives room changes after they have been persisted
type Notifier interface {
	// RoomUpdated publishes the room snapshot to the room's subscribers
	RoomUpdated(ctx context.Context, room *model.Room)
	// RoomFinished publishes the final snapshot once per room
	RoomFinished(ctx context.Context, room *model.Room)
	// RoomListChanged publishes the full room list to every connection
	RoomListChanged(ctx context.Context)
}

// Subscription attaches a connection to a room's broadcasts.
// A nil Subscription is allowed and means the caller only wants the snapshot.
type Subscription interface {
	Subscribe(id model.RoomID)
}

// Locker serializes mutations of a single room
type Locker interface {
	Lock(id model.RoomID) func()
}

// Service creates and looks up rooms
type Service struct {
	storage  storage.Storage
	notifier Notifier
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger

	locks sync.Map // model.RoomID -> *sync.Mutex
}

// New creates a new room service
func New(
	storage storage.Storage,
	notifier Notifier,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:  storage,
		notifier: notifier,
		clock:    clock,
		random:   random,
		logger:   logger.With(slog.String("component", "room-service")),
	}
}

// Lock enters the room's critical section and returns the matching unlock.
// Every read-modify-write of a room must happen while holding it.
func (s *Service) Lock(id model.RoomID) func() {
	m, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// CreateRoom creates a waiting room with the given host.
// An empty hostID leaves the host slot open for the first joiner.
func (s *Service) CreateRoom(ctx context.Context, hostID model.UserID) (*model.Room, error) {
	// Generate unique room code. The existence check runs under the code's lock so
	// two creators drawing the same code cannot both claim it.
	var (
		id     model.RoomID
		unlock func()
	)
	for {
		id = model.RoomID(s.random.String(CodeLength, CodeAlphabet))
		unlock = s.Lock(id)
		exists, err := s.storage.RoomExists(ctx, id)
		if err != nil {
			unlock()
			return nil, err
		}
		if !exists {
			break
		}
		unlock()
	}
	defer unlock()

	room := model.NewRoom(id, hostID, s.clock.Now())
	if err := s.storage.SaveRoom(ctx, room); err != nil {
		s.logger.Error("failed to save new room",
			slog.String("room_id", string(id)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("room created",
		slog.String("room_id", string(id)),
		slog.String("host_id", string(hostID)),
	)

	s.notifier.RoomUpdated(ctx, room)
	s.notifier.RoomListChanged(ctx)
	return room, nil
}

// GetRoom retrieves a room by id
func (s *Service) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	return s.storage.GetRoom(ctx, id)
}

// ListRooms returns every room, oldest first
func (s *Service) ListRooms(ctx context.Context) ([]*model.Room, error) {
	return s.storage.ListRooms(ctx)
}
