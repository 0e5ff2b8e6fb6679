package redis

import (
	"fmt"

	"github.com/mcoot/duelrooms/internal/model"
)

// Key prefix for all duel data
const keyPrefix = "duel"

// roomKey returns the Redis key for a Room
func roomKey(id model.RoomID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, id)
}

// roomsIndexKey returns the Redis key for the ZSET of room ids scored by creation time
func roomsIndexKey() string {
	return fmt.Sprintf("%s:idx:rooms", keyPrefix)
}

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// displayNameIndexKey returns the Redis key for the display name -> user id index
func displayNameIndexKey(displayName string) string {
	return fmt.Sprintf("%s:idx:display_name:%s", keyPrefix, displayName)
}

// usersIndexKey returns the Redis key for the ZSET of user ids scored by creation time
func usersIndexKey() string {
	return fmt.Sprintf("%s:idx:users", keyPrefix)
}
