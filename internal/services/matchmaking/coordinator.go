// Package matchmaking places participants into room slots.
package matchmaking

import (
	"context"
	"log/slog"

	"github.com/mcoot/duelrooms/internal/dependencies/clock"
	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/services/room"
	"github.com/mcoot/duelrooms/internal/storage"
)

// Coordinator assigns participants to the host and opponent slots of a room
type Coordinator struct {
	storage  storage.Storage
	locker   room.Locker
	notifier room.Notifier
	clock    clock.Clock
	logger   *slog.Logger
}

// NewCoordinator creates a new matchmaking coordinator
func NewCoordinator(
	storage storage.Storage,
	locker room.Locker,
	notifier room.Notifier,
	clock clock.Clock,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		storage:  storage,
		locker:   locker,
		notifier: notifier,
		clock:    clock,
		logger:   logger.With(slog.String("component", "matchmaking")),
	}
}

// JoinGame claims a slot in the room for the participant and subscribes sub to it.
// A participant already holding a slot is only re-subscribed.
func (c *Coordinator) JoinGame(
	ctx context.Context,
	roomID model.RoomID,
	participantID model.UserID,
	sub room.Subscription,
) (*model.Room, error) {
	unlock := c.locker.Lock(roomID)
	defer unlock()

	r, err := c.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	result, err := r.AssignParticipant(participantID)
	if err != nil {
		c.logger.Debug("join rejected",
			slog.String("room_id", string(roomID)),
			slog.String("participant_id", string(participantID)),
			slog.String("reason", err.Error()),
		)
		return nil, err
	}

	if result == model.Rejoined {
		subscribe(sub, roomID)
		return r, nil
	}

	r.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveRoom(ctx, r); err != nil {
		c.logger.Error("failed to save joined room",
			slog.String("room_id", string(roomID)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	subscribe(sub, roomID)

	c.logger.Info("participant joined",
		slog.String("room_id", string(roomID)),
		slog.String("participant_id", string(participantID)),
		slog.Bool("as_host", result == model.JoinedAsHost),
	)

	c.notifier.RoomUpdated(ctx, r)
	c.notifier.RoomListChanged(ctx)
	return r, nil
}

// Join subscribes to a room without claiming a slot and returns its current state.
// Holding the lock keeps the snapshot and the subscription on the same side of any broadcast.
func (c *Coordinator) Join(ctx context.Context, roomID model.RoomID, sub room.Subscription) (*model.Room, error) {
	unlock := c.locker.Lock(roomID)
	defer unlock()

	r, err := c.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	subscribe(sub, roomID)
	return r, nil
}

func subscribe(sub room.Subscription, id model.RoomID) {
	if sub != nil {
		sub.Subscribe(id)
	}
}
