package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Room errors
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrRoomFinished     = errors.New("room has finished")
	ErrNotAParticipant  = errors.New("not a participant in this room")
	ErrMatchInProgress  = errors.New("match is already in progress")
	ErrMatchNotLive     = errors.New("match is not live")
	ErrCountdownNotOpen = errors.New("room is not counting down")

	// Storage errors
	ErrStoreUnavailable = errors.New("record store unavailable")
	ErrInvalidRecord    = errors.New("invalid stored record")
)
