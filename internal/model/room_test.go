package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newLiveRoom() *Room {
	r := NewRoom("ROOM01", "host", testNow)
	r.OpponentID = "opp"
	r.Status = RoomStatusPlaying
	r.HostReady = true
	r.OpponentReady = true
	return r
}

func TestNewRoomPopulatesFullShape(t *testing.T) {
	r := NewRoom("ROOM01", "host", testNow)

	assert.Equal(t, RoomStatusWaiting, r.Status)
	assert.Equal(t, MaxHP, r.HostHP)
	assert.Equal(t, MaxHP, r.OpponentHP)
	assert.False(t, r.HostReady)
	assert.False(t, r.OpponentReady)
	assert.Nil(t, r.StartAt)
	assert.Empty(t, r.WinnerID)
	assert.Equal(t, testNow, r.CreatedAt)
	require.NoError(t, r.Validate())
}

func TestAssignParticipant(t *testing.T) {
	tests := []struct {
		name       string
		room       func() *Room
		user       UserID
		wantResult JoinResult
		wantErr    error
		wantStatus RoomStatus
	}{
		{
			name:       "empty host slot",
			room:       func() *Room { return NewRoom("R", "", testNow) },
			user:       "alice",
			wantResult: JoinedAsHost,
			wantStatus: RoomStatusWaiting,
		},
		{
			name:       "opponent slot open",
			room:       func() *Room { return NewRoom("R", "host", testNow) },
			user:       "bob",
			wantResult: JoinedAsOpponent,
			wantStatus: RoomStatusReady,
		},
		{
			name:       "host rejoins",
			room:       func() *Room { return NewRoom("R", "host", testNow) },
			user:       "host",
			wantResult: Rejoined,
			wantStatus: RoomStatusWaiting,
		},
		{
			name: "opponent rejoins",
			room: func() *Room {
				r := NewRoom("R", "host", testNow)
				r.OpponentID = "opp"
				r.Status = RoomStatusReady
				return r
			},
			user:       "opp",
			wantResult: Rejoined,
			wantStatus: RoomStatusReady,
		},
		{
			name:       "empty participant id",
			room:       func() *Room { return NewRoom("R", "", testNow) },
			user:       "",
			wantErr:    ErrNotAParticipant,
			wantStatus: RoomStatusWaiting,
		},
		{
			name: "both slots taken",
			room: func() *Room {
				r := NewRoom("R", "host", testNow)
				r.OpponentID = "opp"
				r.Status = RoomStatusReady
				return r
			},
			user:       "carol",
			wantErr:    ErrRoomFull,
			wantStatus: RoomStatusReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.room()
			result, err := r.AssignParticipant(tt.user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantResult, result)
			}
			assert.Equal(t, tt.wantStatus, r.Status)
			assert.NoError(t, r.Validate())
		})
	}
}

func TestSetReadyRejectsStrangers(t *testing.T) {
	r := NewRoom("R", "host", testNow)

	err := r.SetReady("stranger", true)
	assert.ErrorIs(t, err, ErrNotAParticipant)
	assert.False(t, r.HostReady)
}

func TestSetReadyRejectedOnceLive(t *testing.T) {
	r := newLiveRoom()

	err := r.SetReady("host", false)
	assert.ErrorIs(t, err, ErrMatchInProgress)
	assert.True(t, r.HostReady)
}

func TestCountdownLifecycle(t *testing.T) {
	r := NewRoom("R", "host", testNow)
	_, _ = r.AssignParticipant("opp")
	require.NoError(t, r.SetReady("host", true))
	require.NoError(t, r.SetReady("opp", true))
	require.True(t, r.BothReady())

	r.BeginCountdown(testNow.Add(3 * time.Second))
	assert.Equal(t, RoomStatusStarting, r.Status)
	require.NotNil(t, r.StartAt)
	require.NoError(t, r.Validate())

	r.RevertCountdown()
	assert.Equal(t, RoomStatusReady, r.Status)
	assert.Nil(t, r.StartAt)
	assert.ErrorIs(t, r.GoLive(), ErrCountdownNotOpen)

	r.BeginCountdown(testNow.Add(3 * time.Second))
	require.NoError(t, r.GoLive())
	assert.Equal(t, RoomStatusPlaying, r.Status)
	assert.Nil(t, r.StartAt)
	assert.NoError(t, r.Validate())
}

func TestRevertCountdownWithoutOpponentWaits(t *testing.T) {
	r := NewRoom("R", "host", testNow)
	r.RevertCountdown()
	assert.Equal(t, RoomStatusWaiting, r.Status)
}

func TestApplyAttackDrainsCounterpart(t *testing.T) {
	r := newLiveRoom()

	finished, err := r.ApplyAttack("host")
	require.NoError(t, err)
	assert.False(t, finished)
	assert.Equal(t, MaxHP-1, r.OpponentHP)
	assert.Equal(t, MaxHP, r.HostHP)

	finished, err = r.ApplyAttack("opp")
	require.NoError(t, err)
	assert.False(t, finished)
	assert.Equal(t, MaxHP-1, r.HostHP)
}

func TestApplyAttackFinishesAtZero(t *testing.T) {
	r := newLiveRoom()
	r.OpponentHP = 1

	finished, err := r.ApplyAttack("host")
	require.NoError(t, err)
	assert.True(t, finished)
	assert.Equal(t, 0, r.OpponentHP)
	assert.Equal(t, RoomStatusFinished, r.Status)
	assert.Equal(t, UserID("host"), r.WinnerID)
	assert.Equal(t, UserID("opp"), r.LoserID())
	assert.NoError(t, r.Validate())
}

func TestApplyAttackAfterFinishIsRejected(t *testing.T) {
	r := newLiveRoom()
	r.HostHP = 1
	_, _ = r.ApplyAttack("opp")
	require.True(t, r.IsFinished())

	for _, attacker := range []UserID{"host", "opp"} {
		finished, err := r.ApplyAttack(attacker)
		assert.ErrorIs(t, err, ErrRoomFinished)
		assert.False(t, finished)
	}
	assert.Equal(t, 0, r.HostHP)
	assert.Equal(t, MaxHP, r.OpponentHP)
	assert.Equal(t, UserID("opp"), r.WinnerID)
}

func TestApplyAttackRequiresLiveMatch(t *testing.T) {
	r := NewRoom("R", "host", testNow)
	_, _ = r.AssignParticipant("opp")

	_, err := r.ApplyAttack("host")
	assert.ErrorIs(t, err, ErrMatchNotLive)
	assert.Equal(t, MaxHP, r.OpponentHP)

	_, err = newLiveRoom().ApplyAttack("stranger")
	assert.ErrorIs(t, err, ErrNotAParticipant)
}

func TestValidateRejectsMalformedRecords(t *testing.T) {
	startAt := testNow

	tests := []struct {
		name   string
		mutate func(r *Room)
	}{
		{"missing id", func(r *Room) { r.ID = "" }},
		{"unknown status", func(r *Room) { r.Status = "paused" }},
		{"negative hp", func(r *Room) { r.HostHP = -1 }},
		{"hp above max", func(r *Room) { r.OpponentHP = MaxHP + 1 }},
		{"winner while playing", func(r *Room) { r.WinnerID = "host" }},
		{"finished without winner", func(r *Room) { r.Status = RoomStatusFinished }},
		{"start time while playing", func(r *Room) { r.StartAt = &startAt }},
		{"starting without start time", func(r *Room) { r.Status = RoomStatusStarting }},
		{"opponent without host", func(r *Room) { r.HostID = "" }},
		{"host plays itself", func(r *Room) { r.OpponentID = r.HostID }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newLiveRoom()
			tt.mutate(r)
			assert.ErrorIs(t, r.Validate(), ErrInvalidRecord)
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := NewRoom("R", "host", testNow)
	r.BeginCountdown(testNow)

	c := r.Clone()
	c.HostHP = 1
	*c.StartAt = testNow.Add(time.Hour)

	assert.Equal(t, MaxHP, r.HostHP)
	assert.Equal(t, testNow, *r.StartAt)
}
