package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/storage"
	"github.com/mcoot/duelrooms/internal/storage/storagetest"
)

func newTestStorage(t *testing.T, mini *miniredis.Miniredis, cfg Config) *Storage {
	client := redis.NewClient(&redis.Options{
		Addr: mini.Addr(),
	})
	s := NewWithClient(client, cfg)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorageContract(t *testing.T) {
	suite.Run(t, &storagetest.Suite{
		NewStorage: func(t *testing.T) storage.Storage {
			return newTestStorage(t, miniredis.RunT(t), DefaultConfig())
		},
	})
}

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	cfg := DefaultConfig()
	cfg.RoomTTL = time.Hour

	s.storage = newTestStorage(s.T(), s.mini, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TestRoomTTL() {
	room := model.NewRoom("ABC123", "host", time.Now())
	s.Require().NoError(s.storage.SaveRoom(s.ctx, room))

	ttl := s.mini.TTL(roomKey(room.ID))
	s.True(ttl > 0, "Room should have TTL")
}

func (s *StorageSuite) TestUsersDoNotExpire() {
	user := &model.User{ID: "user-1", DisplayName: "alice"}
	s.Require().NoError(s.storage.SaveUser(s.ctx, user))

	s.Equal(time.Duration(0), s.mini.TTL(userKey(user.ID)))
	s.Equal(time.Duration(0), s.mini.TTL(displayNameIndexKey("alice")))
}

func (s *StorageSuite) TestExpiredRoomsDropOutOfListing() {
	s.Require().NoError(s.storage.SaveRoom(s.ctx, model.NewRoom("ABC123", "host", time.Now())))

	s.mini.FastForward(2 * time.Hour)

	rooms, err := s.storage.ListRooms(s.ctx)
	s.Require().NoError(err)
	s.Empty(rooms)

	remaining, err := s.storage.client.ZCard(s.ctx, roomsIndexKey()).Result()
	s.Require().NoError(err)
	s.Zero(remaining)
}

func (s *StorageSuite) TestCorruptRoomIsRejected() {
	s.Require().NoError(s.mini.Set(roomKey("BROKEN"), "{not json"))

	_, err := s.storage.GetRoom(s.ctx, "BROKEN")
	s.ErrorIs(err, model.ErrInvalidRecord)
}

func (s *StorageSuite) TestRoomMissingFieldsIsRejected() {
	// A record written without hit points or status must not be patched up on read
	s.Require().NoError(s.mini.Set(roomKey("OLD001"), `{"ID":"OLD001","HostID":"host"}`))

	_, err := s.storage.GetRoom(s.ctx, "OLD001")
	s.ErrorIs(err, model.ErrInvalidRecord)
}

func (s *StorageSuite) TestServerErrorsAreUnavailable() {
	s.mini.SetError("LOADING dataset in memory")

	_, err := s.storage.GetRoom(s.ctx, "ABC123")
	s.ErrorIs(err, model.ErrStoreUnavailable)

	err = s.storage.SaveRoom(s.ctx, model.NewRoom("ABC123", "host", time.Now()))
	s.ErrorIs(err, model.ErrStoreUnavailable)

	_, err = s.storage.ListRooms(s.ctx)
	s.ErrorIs(err, model.ErrStoreUnavailable)
}

func (s *StorageSuite) TestNewFailsWhenServerUnreachable() {
	cfg := DefaultConfig()
	cfg.URL = "redis://127.0.0.1:1"

	_, err := New(cfg)
	s.ErrorIs(err, model.ErrStoreUnavailable)
}
