// Package combat applies attacks to live matches and settles finished ones.
package combat

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mcoot/duelrooms/internal/dependencies/clock"
	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/services/room"
	"github.com/mcoot/duelrooms/internal/storage"
)

// Resolver applies attacks and records match results.
// settleMu guards user records, which are shared between rooms; it is taken after the room lock.
type Resolver struct {
	storage  storage.Storage
	locker   room.Locker
	notifier room.Notifier
	clock    clock.Clock
	logger   *slog.Logger

	settleMu sync.Mutex
}

// NewResolver creates a new combat resolver
func NewResolver(
	storage storage.Storage,
	locker room.Locker,
	notifier room.Notifier,
	clock clock.Clock,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		storage:  storage,
		locker:   locker,
		notifier: notifier,
		clock:    clock,
		logger:   logger.With(slog.String("component", "combat")),
	}
}

// Attack damages the attacker's counterpart. The attack that drains a participant to
// zero finishes the room and credits the win and loss in the same commit.
func (r *Resolver) Attack(ctx context.Context, roomID model.RoomID, attackerID model.UserID) (*model.Room, error) {
	unlock := r.locker.Lock(roomID)
	defer unlock()

	rm, err := r.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	finished, err := rm.ApplyAttack(attackerID)
	if err != nil {
		return nil, err
	}
	now := r.clock.Now()
	rm.UpdatedAt = now

	var settled []*model.User
	if finished {
		r.settleMu.Lock()
		defer r.settleMu.Unlock()

		settled, err = r.settle(ctx, rm)
		if err != nil {
			return nil, err
		}
	}

	if err := r.storage.CommitRoom(ctx, rm, settled...); err != nil {
		r.logger.Error("failed to commit attack",
			slog.String("room_id", string(roomID)),
			slog.Bool("finished", finished),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	r.notifier.RoomUpdated(ctx, rm)
	if finished {
		r.logger.Info("match finished",
			slog.String("room_id", string(roomID)),
			slog.String("winner_id", string(rm.WinnerID)),
		)
		r.notifier.RoomFinished(ctx, rm)
	}
	r.notifier.RoomListChanged(ctx)
	return rm, nil
}

// settle loads both participants and applies the result. Rooms that never had an
// opponent produce no stats, and participants without a user record are skipped.
func (r *Resolver) settle(ctx context.Context, rm *model.Room) ([]*model.User, error) {
	if !rm.HasHost() || !rm.HasOpponent() {
		return nil, nil
	}

	now := r.clock.Now()
	var users []*model.User

	winner, err := r.loadUser(ctx, rm.WinnerID)
	if err != nil {
		return nil, err
	}
	if winner != nil {
		winner.RecordWin(now)
		users = append(users, winner)
	}

	loser, err := r.loadUser(ctx, rm.LoserID())
	if err != nil {
		return nil, err
	}
	if loser != nil {
		loser.RecordLoss(now)
		users = append(users, loser)
	}
	return users, nil
}

func (r *Resolver) loadUser(ctx context.Context, id model.UserID) (*model.User, error) {
	u, err := r.storage.GetUser(ctx, id)
	if errors.Is(err, model.ErrUserNotFound) {
		r.logger.Warn("participant has no user record",
			slog.String("user_id", string(id)),
		)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
