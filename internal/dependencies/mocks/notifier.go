package mocks

import (
	"context"
	"sync"

	"github.com/mcoot/duelrooms/internal/model"
)

// Notification kinds recorded by Notifier
const (
	NotifyUpdate   = "game:update"
	NotifyFinished = "game:finished"
	NotifyList     = "games:list"
)

// Notification is a single recorded broadcast
type Notification struct {
	Kind string
	Room *model.Room // nil for list notifications
}

// Notifier records every broadcast request in order
type Notifier struct {
	mu     sync.Mutex
	events []Notification
}

// NewNotifier creates an empty recording notifier
func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) RoomUpdated(ctx context.Context, room *model.Room) {
	n.record(NotifyUpdate, room.Clone())
}

func (n *Notifier) RoomFinished(ctx context.Context, room *model.Room) {
	n.record(NotifyFinished, room.Clone())
}

func (n *Notifier) RoomListChanged(ctx context.Context) {
	n.record(NotifyList, nil)
}

func (n *Notifier) record(kind string, room *model.Room) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, Notification{Kind: kind, Room: room})
}

// Events returns a copy of everything recorded so far
func (n *Notifier) Events() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.events...)
}

// Kinds returns the recorded notification kinds in order
func (n *Notifier) Kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]string, len(n.events))
	for i, e := range n.events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Count returns how many notifications of the given kind were recorded
func (n *Notifier) Count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, e := range n.events {
		if e.Kind == kind {
			count++
		}
	}
	return count
}

// Reset forgets every recorded notification
func (n *Notifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

// Subscription records the rooms a connection subscribed to
type Subscription struct {
	mu    sync.Mutex
	rooms []model.RoomID
}

func (s *Subscription) Subscribe(id model.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = append(s.rooms, id)
}

// Rooms returns the subscribed room ids in order
func (s *Subscription) Rooms() []model.RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RoomID(nil), s.rooms...)
}
