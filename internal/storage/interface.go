package storage

import (
	"context"

	"github.com/mcoot/duelrooms/internal/model"
)

// Storage defines the interface for record persistence.
// Implementations validate rooms on write and on read, and wrap backend
// failures with model.ErrStoreUnavailable.
type Storage interface {
	// User operations
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByDisplayName(ctx context.Context, displayName string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)

	// Room operations
	SaveRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error)
	RoomExists(ctx context.Context, id model.RoomID) (bool, error)
	// ListRooms returns all rooms ordered by creation time
	ListRooms(ctx context.Context) ([]*model.Room, error)

	// CommitRoom writes a room together with any user records it updated.
	// Either every record is written or none are.
	CommitRoom(ctx context.Context, room *model.Room, users ...*model.User) error
}
