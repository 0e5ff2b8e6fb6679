// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/storage"
)

// Suite runs the common storage contract against a backend.
// Backends embed it or run it directly with NewStorage set.
type Suite struct {
	suite.Suite

	// NewStorage returns an empty store for each test
	NewStorage func(t *testing.T) storage.Storage

	Storage storage.Storage
	Ctx     context.Context
}

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func (s *Suite) SetupTest() {
	s.Storage = s.NewStorage(s.T())
	s.Ctx = context.Background()
}

func newUser(id model.UserID, name string, offset time.Duration) *model.User {
	return &model.User{
		ID:           id,
		DisplayName:  name,
		PasswordHash: "hash",
		CreatedAt:    baseTime.Add(offset),
		UpdatedAt:    baseTime.Add(offset),
	}
}

// User tests

func (s *Suite) TestSaveAndGetUser() {
	user := newUser("user-1", "alice", 0)

	s.Require().NoError(s.Storage.SaveUser(s.Ctx, user))

	retrieved, err := s.Storage.GetUser(s.Ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(user.DisplayName, retrieved.DisplayName)
	s.Equal(user.PasswordHash, retrieved.PasswordHash)
	s.True(user.CreatedAt.Equal(retrieved.CreatedAt))
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.Storage.GetUser(s.Ctx, "nonexistent")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestGetUserByDisplayName() {
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, newUser("user-1", "alice", 0)))

	retrieved, err := s.Storage.GetUserByDisplayName(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.UserID("user-1"), retrieved.ID)

	_, err = s.Storage.GetUserByDisplayName(s.Ctx, "bob")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestListUsersOrderedByRegistration() {
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, newUser("user-b", "bob", time.Minute)))
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, newUser("user-a", "alice", 0)))

	users, err := s.Storage.ListUsers(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal(model.UserID("user-a"), users[0].ID)
	s.Equal(model.UserID("user-b"), users[1].ID)
}

func (s *Suite) TestReturnedUserIsACopy() {
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, newUser("user-1", "alice", 0)))

	u, err := s.Storage.GetUser(s.Ctx, "user-1")
	s.Require().NoError(err)
	u.Wins = 99

	again, err := s.Storage.GetUser(s.Ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(0, again.Wins)
}

// Room tests

func (s *Suite) TestSaveAndGetRoom() {
	room := model.NewRoom("ABC123", "host", baseTime)

	s.Require().NoError(s.Storage.SaveRoom(s.Ctx, room))

	retrieved, err := s.Storage.GetRoom(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(room.ID, retrieved.ID)
	s.Equal(room.HostID, retrieved.HostID)
	s.Equal(model.RoomStatusWaiting, retrieved.Status)
	s.Equal(model.MaxHP, retrieved.HostHP)
	s.Equal(model.MaxHP, retrieved.OpponentHP)
	s.Nil(retrieved.StartAt)
}

func (s *Suite) TestGetRoomNotFound() {
	_, err := s.Storage.GetRoom(s.Ctx, "NOPE00")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestRoomExists() {
	s.Require().NoError(s.Storage.SaveRoom(s.Ctx, model.NewRoom("ABC123", "host", baseTime)))

	exists, err := s.Storage.RoomExists(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.Storage.RoomExists(s.Ctx, "NOPE00")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *Suite) TestStartTimeRoundTrips() {
	room := model.NewRoom("ABC123", "host", baseTime)
	_, err := room.AssignParticipant("opp")
	s.Require().NoError(err)
	room.BeginCountdown(baseTime.Add(3 * time.Second))

	s.Require().NoError(s.Storage.SaveRoom(s.Ctx, room))

	retrieved, err := s.Storage.GetRoom(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(model.RoomStatusStarting, retrieved.Status)
	s.Require().NotNil(retrieved.StartAt)
	s.True(baseTime.Add(3 * time.Second).Equal(*retrieved.StartAt))
}

func (s *Suite) TestSaveRoomRejectsInvalidRecord() {
	room := model.NewRoom("ABC123", "host", baseTime)
	room.HostHP = -5

	err := s.Storage.SaveRoom(s.Ctx, room)
	s.ErrorIs(err, model.ErrInvalidRecord)

	exists, err := s.Storage.RoomExists(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *Suite) TestListRoomsOrderedByCreation() {
	s.Require().NoError(s.Storage.SaveRoom(s.Ctx, model.NewRoom("CCCCCC", "h3", baseTime.Add(2*time.Minute))))
	s.Require().NoError(s.Storage.SaveRoom(s.Ctx, model.NewRoom("AAAAAA", "h1", baseTime)))
	s.Require().NoError(s.Storage.SaveRoom(s.Ctx, model.NewRoom("BBBBBB", "h2", baseTime.Add(time.Minute))))

	rooms, err := s.Storage.ListRooms(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(rooms, 3)
	s.Equal(model.RoomID("AAAAAA"), rooms[0].ID)
	s.Equal(model.RoomID("BBBBBB"), rooms[1].ID)
	s.Equal(model.RoomID("CCCCCC"), rooms[2].ID)
}

func (s *Suite) TestListRoomsEmpty() {
	rooms, err := s.Storage.ListRooms(s.Ctx)
	s.Require().NoError(err)
	s.Empty(rooms)
}

func (s *Suite) TestSaveRoomOverwrites() {
	room := model.NewRoom("ABC123", "host", baseTime)
	s.Require().NoError(s.Storage.SaveRoom(s.Ctx, room))

	_, err := room.AssignParticipant("opp")
	s.Require().NoError(err)
	s.Require().NoError(s.Storage.SaveRoom(s.Ctx, room))

	retrieved, err := s.Storage.GetRoom(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(model.UserID("opp"), retrieved.OpponentID)
	s.Equal(model.RoomStatusReady, retrieved.Status)

	rooms, err := s.Storage.ListRooms(s.Ctx)
	s.Require().NoError(err)
	s.Len(rooms, 1)
}

func (s *Suite) TestCommitRoomWritesUsersTogether() {
	winner := newUser("host", "alice", 0)
	loser := newUser("opp", "bob", time.Second)
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, winner))
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, loser))

	room := model.NewRoom("ABC123", "host", baseTime)
	room.OpponentID = "opp"
	room.Status = model.RoomStatusPlaying
	room.OpponentHP = 1
	finished, err := room.ApplyAttack("host")
	s.Require().NoError(err)
	s.Require().True(finished)

	winner.RecordWin(baseTime)
	loser.RecordLoss(baseTime)
	s.Require().NoError(s.Storage.CommitRoom(s.Ctx, room, winner, loser))

	storedRoom, err := s.Storage.GetRoom(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(model.RoomStatusFinished, storedRoom.Status)
	s.Equal(model.UserID("host"), storedRoom.WinnerID)

	storedWinner, err := s.Storage.GetUser(s.Ctx, "host")
	s.Require().NoError(err)
	s.Equal(1, storedWinner.Wins)

	storedLoser, err := s.Storage.GetUser(s.Ctx, "opp")
	s.Require().NoError(err)
	s.Equal(1, storedLoser.Losses)
}

func (s *Suite) TestCommitInvalidRoomWritesNothing() {
	user := newUser("host", "alice", 0)
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, user))

	room := model.NewRoom("ABC123", "host", baseTime)
	room.Status = model.RoomStatusFinished // no winner
	user.RecordWin(baseTime)

	err := s.Storage.CommitRoom(s.Ctx, room, user)
	s.ErrorIs(err, model.ErrInvalidRecord)

	stored, err := s.Storage.GetUser(s.Ctx, "host")
	s.Require().NoError(err)
	s.Equal(0, stored.Wins)
}

func (s *Suite) TestReturnedRoomIsACopy() {
	s.Require().NoError(s.Storage.SaveRoom(s.Ctx, model.NewRoom("ABC123", "host", baseTime)))

	r, err := s.Storage.GetRoom(s.Ctx, "ABC123")
	s.Require().NoError(err)
	r.HostHP = 1

	again, err := s.Storage.GetRoom(s.Ctx, "ABC123")
	s.Require().NoError(err)
	s.Equal(model.MaxHP, again.HostHP)
}
