package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/services/room"
)

// RoomLister loads the full room list for games:list events
type RoomLister interface {
	ListRooms(ctx context.Context) ([]*model.Room, error)
}

// Broadcaster publishes room changes to connected subscribers
type Broadcaster struct {
	hubManager *HubManager
	rooms      RoomLister
	logger     *slog.Logger

	// Serializes list loads so a newer list is never overtaken by an older one
	listMu sync.Mutex
}

// Ensure Broadcaster implements the services' notifier
var _ room.Notifier = (*Broadcaster)(nil)

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, rooms RoomLister, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		rooms:      rooms,
		logger:     logger.With(slog.String("component", "broadcaster")),
	}
}

// RoomUpdated sends game:update to the room's subscribers
func (b *Broadcaster) RoomUpdated(ctx context.Context, r *model.Room) {
	b.hubManager.Publish(RoomChannel(r.ID), RoomEvent(EventGameUpdate, r))
}

// RoomFinished sends game:finished to the room's subscribers
func (b *Broadcaster) RoomFinished(ctx context.Context, r *model.Room) {
	b.hubManager.Publish(RoomChannel(r.ID), RoomEvent(EventGameFinished, r))
}

// RoomListChanged sends the current room list to every connection
func (b *Broadcaster) RoomListChanged(ctx context.Context) {
	b.listMu.Lock()
	defer b.listMu.Unlock()

	rooms, err := b.rooms.ListRooms(ctx)
	if err != nil {
		b.logger.Error("failed to load room list",
			slog.Any("error", err))
		return
	}
	b.hubManager.Publish(GlobalChannel, ListEvent(rooms))
}
