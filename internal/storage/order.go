package storage

import (
	"sort"

	"github.com/mcoot/duelrooms/internal/model"
)

// SortRooms orders rooms by creation time, oldest first, breaking ties by id
func SortRooms(rooms []*model.Room) {
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
}

// SortUsers orders users by registration time, breaking ties by id
func SortUsers(users []*model.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
}
