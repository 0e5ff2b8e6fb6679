package model

import "time"

// UserID uniquely identifies a registered user
type UserID string

// User is a registered player and their match record
type User struct {
	ID           UserID
	DisplayName  string
	PasswordHash string // bcrypt hash
	Wins         int
	Losses       int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RecordWin increments the win counter
func (u *User) RecordWin(at time.Time) {
	u.Wins++
	u.UpdatedAt = at
}

// RecordLoss increments the loss counter
func (u *User) RecordLoss(at time.Time) {
	u.Losses++
	u.UpdatedAt = at
}

// Clone returns a copy of the user
func (u *User) Clone() *User {
	c := *u
	return &c
}
