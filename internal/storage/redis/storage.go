package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, unavailable(err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
}

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.queueUser(ctx, pipe, user, data)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	data, err := s.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, unavailable(err)
	}
	return decodeUser(data)
}

func (s *Storage) GetUserByDisplayName(ctx context.Context, displayName string) (*model.User, error) {
	// Look up user ID from display name index
	id, err := s.client.Get(ctx, displayNameIndexKey(displayName)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, unavailable(err)
	}

	return s.GetUser(ctx, model.UserID(id))
}

func (s *Storage) ListUsers(ctx context.Context) ([]*model.User, error) {
	ids, err := s.client.ZRange(ctx, usersIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(ids) == 0 {
		return []*model.User{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(model.UserID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	users := make([]*model.User, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue
		}
		user, err := decodeUser([]byte(val.(string)))
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	return s.CommitRoom(ctx, room)
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	data, err := s.client.Get(ctx, roomKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, unavailable(err)
	}
	return decodeRoom(data)
}

func (s *Storage) RoomExists(ctx context.Context, id model.RoomID) (bool, error) {
	exists, err := s.client.Exists(ctx, roomKey(id)).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return exists > 0, nil
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.Room, error) {
	ids, err := s.client.ZRange(ctx, roomsIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(ids) == 0 {
		return []*model.Room{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = roomKey(model.RoomID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	rooms := make([]*model.Room, 0, len(values))
	var expired []any
	for i, val := range values {
		if val == nil {
			expired = append(expired, ids[i]) // Room expired under RoomTTL
			continue
		}
		room, err := decodeRoom([]byte(val.(string)))
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	if len(expired) > 0 {
		// Best effort; a stale index entry is skipped on the next listing anyway
		_ = s.client.ZRem(ctx, roomsIndexKey(), expired...).Err()
	}

	storage.SortRooms(rooms)
	return rooms, nil
}

func (s *Storage) CommitRoom(ctx context.Context, room *model.Room, users ...*model.User) error {
	if err := room.Validate(); err != nil {
		return err
	}

	roomData, err := json.Marshal(room)
	if err != nil {
		return err
	}
	userData := make([][]byte, len(users))
	for i, u := range users {
		if userData[i], err = json.Marshal(u); err != nil {
			return err
		}
	}

	// MULTI/EXEC so the room and its users land together
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, roomKey(room.ID), roomData, s.cfg.RoomTTL)
		pipe.ZAdd(ctx, roomsIndexKey(), redis.Z{
			Score:  float64(room.CreatedAt.UnixMilli()),
			Member: string(room.ID),
		})
		for i, u := range users {
			s.queueUser(ctx, pipe, u, userData[i])
		}
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Storage) queueUser(ctx context.Context, pipe redis.Pipeliner, user *model.User, data []byte) {
	pipe.Set(ctx, userKey(user.ID), data, 0) // Users never expire
	pipe.Set(ctx, displayNameIndexKey(user.DisplayName), string(user.ID), 0)
	pipe.ZAdd(ctx, usersIndexKey(), redis.Z{
		Score:  float64(user.CreatedAt.UnixMilli()),
		Member: string(user.ID),
	})
}

func decodeRoom(data []byte) (*model.Room, error) {
	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidRecord, err)
	}
	if err := room.Validate(); err != nil {
		return nil, err
	}
	return &room, nil
}

func decodeUser(data []byte) (*model.User, error) {
	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidRecord, err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: user id is empty", model.ErrInvalidRecord)
	}
	return &user, nil
}
