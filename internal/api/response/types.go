package response

import (
	"time"

	"github.com/mcoot/duelrooms/internal/model"
)

// User represents a user in API responses. The password hash never leaves the server.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:          string(u.ID),
		DisplayName: u.DisplayName,
		Wins:        u.Wins,
		Losses:      u.Losses,
		CreatedAt:   u.CreatedAt,
	}
}

// UsersFromModel converts a slice of users
func UsersFromModel(users []*model.User) []User {
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = UserFromModel(u)
	}
	return out
}

// Room is the room snapshot shared by REST responses and realtime events.
// Open slots and unset fields are null.
type Room struct {
	ID            string     `json:"id"`
	HostID        *string    `json:"hostId"`
	OpponentID    *string    `json:"opponentId"`
	Status        string     `json:"status"`
	HostHP        int        `json:"hostHP"`
	OpponentHP    int        `json:"opponentHP"`
	WinnerID      *string    `json:"winnerId"`
	HostReady     bool       `json:"hostReady"`
	OpponentReady bool       `json:"opponentReady"`
	StartAt       *time.Time `json:"startAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// RoomFromModel converts a model.Room to a response Room
func RoomFromModel(r *model.Room) Room {
	return Room{
		ID:            string(r.ID),
		HostID:        optionalID(r.HostID),
		OpponentID:    optionalID(r.OpponentID),
		Status:        string(r.Status),
		HostHP:        r.HostHP,
		OpponentHP:    r.OpponentHP,
		WinnerID:      optionalID(r.WinnerID),
		HostReady:     r.HostReady,
		OpponentReady: r.OpponentReady,
		StartAt:       r.StartAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// RoomsFromModel converts a slice of rooms, preserving order
func RoomsFromModel(rooms []*model.Room) []Room {
	out := make([]Room, len(rooms))
	for i, r := range rooms {
		out[i] = RoomFromModel(r)
	}
	return out
}

// Health is the body of the health check
type Health struct {
	Status string `json:"status"`
}

func optionalID(id model.UserID) *string {
	if id == "" {
		return nil
	}
	s := string(id)
	return &s
}
