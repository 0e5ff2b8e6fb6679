// Package countdown runs the ready handshake and the grace period before a match goes live.
package countdown

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/duelrooms/internal/dependencies/clock"
	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/services/room"
	"github.com/mcoot/duelrooms/internal/storage"
)

// DefaultGracePeriod is the delay between both participants readying up and the match going live
const DefaultGracePeriod = 3 * time.Second

// Config holds configuration for the scheduler
type Config struct {
	GracePeriod time.Duration
}

// DefaultConfig returns default countdown configuration
func DefaultConfig() Config {
	return Config{
		GracePeriod: DefaultGracePeriod,
	}
}

// pending is an armed countdown. Identity matters: a fired callback only acts
// if its own entry is still the registered one.
type pending struct {
	timer clock.Timer
}

// Scheduler tracks ready flags and owns the timers that start matches.
// Lock order is always room lock, then mu.
type Scheduler struct {
	storage  storage.Storage
	locker   room.Locker
	notifier room.Notifier
	clock    clock.Clock
	logger   *slog.Logger
	grace    time.Duration

	mu      sync.Mutex
	pending map[model.RoomID]*pending
}

// NewScheduler creates a new countdown scheduler
func NewScheduler(
	storage storage.Storage,
	locker room.Locker,
	notifier room.Notifier,
	clock clock.Clock,
	logger *slog.Logger,
	cfg Config,
) *Scheduler {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultConfig().GracePeriod
	}
	return &Scheduler{
		storage:  storage,
		locker:   locker,
		notifier: notifier,
		clock:    clock,
		logger:   logger.With(slog.String("component", "countdown")),
		grace:    cfg.GracePeriod,
		pending:  make(map[model.RoomID]*pending),
	}
}

// SetReady records the participant's ready flag. When both participants are ready a
// countdown is armed; when either drops out it is cancelled. Returns the saved room.
func (s *Scheduler) SetReady(
	ctx context.Context,
	roomID model.RoomID,
	participantID model.UserID,
	ready bool,
) (*model.Room, error) {
	unlock := s.locker.Lock(roomID)
	defer unlock()

	r, err := s.storage.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := r.SetReady(participantID, ready); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	arm, cancel := false, false
	switch {
	case r.BothReady() && !s.isArmed(roomID):
		r.BeginCountdown(now.Add(s.grace))
		arm = true
	case !r.BothReady():
		cancel = s.isArmed(roomID) || r.Status == model.RoomStatusStarting
		r.RevertCountdown()
	}
	r.UpdatedAt = now

	if err := s.storage.SaveRoom(ctx, r); err != nil {
		s.logger.Error("failed to save ready state",
			slog.String("room_id", string(roomID)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if arm {
		s.arm(ctx, roomID)
	}
	if cancel {
		s.cancel(roomID)
	}

	s.logger.Debug("ready flag set",
		slog.String("room_id", string(roomID)),
		slog.String("participant_id", string(participantID)),
		slog.Bool("ready", ready),
		slog.String("status", string(r.Status)),
	)

	s.notifier.RoomUpdated(ctx, r)
	s.notifier.RoomListChanged(ctx)
	return r, nil
}

// IsArmed reports whether a countdown is pending for the room
func (s *Scheduler) IsArmed(roomID model.RoomID) bool {
	return s.isArmed(roomID)
}

// Shutdown stops every pending countdown. Rooms are left in the starting state.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
}

func (s *Scheduler) isArmed(roomID model.RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[roomID]
	return ok
}

func (s *Scheduler) arm(ctx context.Context, roomID model.RoomID) {
	// The countdown outlives the request that armed it
	fireCtx := context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	p := &pending{}
	p.timer = s.clock.AfterFunc(s.grace, func() { s.fire(fireCtx, roomID, p) })
	s.pending[roomID] = p

	s.logger.Info("countdown armed",
		slog.String("room_id", string(roomID)),
		slog.Duration("grace", s.grace),
	)
}

func (s *Scheduler) cancel(roomID model.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[roomID]
	if !ok {
		return
	}
	p.timer.Stop()
	delete(s.pending, roomID)

	s.logger.Info("countdown cancelled", slog.String("room_id", string(roomID)))
}

// claim removes p from the registry if it is still the registered countdown
func (s *Scheduler) claim(roomID model.RoomID, p *pending) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending[roomID] != p {
		return false
	}
	delete(s.pending, roomID)
	return true
}

func (s *Scheduler) fire(ctx context.Context, roomID model.RoomID, p *pending) {
	unlock := s.locker.Lock(roomID)
	defer unlock()

	if !s.claim(roomID, p) {
		return // cancelled or superseded while waiting for the lock
	}

	r, err := s.storage.GetRoom(ctx, roomID)
	if err != nil {
		if !errors.Is(err, model.ErrRoomNotFound) {
			s.logger.Error("failed to load room for countdown",
				slog.String("room_id", string(roomID)),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	if err := r.GoLive(); err != nil {
		return
	}
	r.UpdatedAt = s.clock.Now()

	if err := s.storage.SaveRoom(ctx, r); err != nil {
		s.logger.Error("failed to start match",
			slog.String("room_id", string(roomID)),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("match live", slog.String("room_id", string(roomID)))
	s.notifier.RoomUpdated(ctx, r)
	s.notifier.RoomListChanged(ctx)
}
