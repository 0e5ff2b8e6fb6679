package model

import (
	"fmt"
	"time"
)

// RoomID identifies a room; rooms are addressed by short human-readable codes
type RoomID string

// RoomStatus represents the current phase of a room
type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "waiting"  // Host present, opponent slot open
	RoomStatusReady    RoomStatus = "ready"    // Both slots filled, awaiting ready handshake
	RoomStatusStarting RoomStatus = "starting" // Both ready, grace period running
	RoomStatusPlaying  RoomStatus = "playing"  // Match live, attacks accepted
	RoomStatusFinished RoomStatus = "finished" // Terminal
)

const (
	// MaxHP is the hit points each participant starts with
	MaxHP = 50
	// AttackDamage is the hit points removed by a single attack
	AttackDamage = 1
)

// JoinResult describes what AssignParticipant did
type JoinResult int

const (
	JoinedAsHost JoinResult = iota
	JoinedAsOpponent
	Rejoined // Caller already holds a slot; nothing changed
)

// Room is a two-participant duel
type Room struct {
	ID         RoomID
	HostID     UserID // Empty when the host slot is open
	OpponentID UserID // Empty when the opponent slot is open
	Status     RoomStatus

	HostHP     int
	OpponentHP int
	WinnerID   UserID // Set iff Status is finished

	HostReady     bool
	OpponentReady bool
	StartAt       *time.Time // Set iff Status is starting

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRoom creates a room in its initial state with the given host
func NewRoom(id RoomID, hostID UserID, now time.Time) *Room {
	return &Room{
		ID:            id,
		HostID:        hostID,
		OpponentID:    "",
		Status:        RoomStatusWaiting,
		HostHP:        MaxHP,
		OpponentHP:    MaxHP,
		WinnerID:      "",
		HostReady:     false,
		OpponentReady: false,
		StartAt:       nil,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone returns a deep copy of the room
func (r *Room) Clone() *Room {
	c := *r
	if r.StartAt != nil {
		at := *r.StartAt
		c.StartAt = &at
	}
	return &c
}

// HasHost returns true if the host slot is filled
func (r *Room) HasHost() bool {
	return r.HostID != ""
}

// HasOpponent returns true if the opponent slot is filled
func (r *Room) HasOpponent() bool {
	return r.OpponentID != ""
}

// IsParticipant returns true if the user holds either slot
func (r *Room) IsParticipant(userID UserID) bool {
	if userID == "" {
		return false
	}
	return userID == r.HostID || userID == r.OpponentID
}

// BothReady returns true if both participants have opted in
func (r *Room) BothReady() bool {
	return r.HostReady && r.OpponentReady
}

// IsFinished returns true once the room has reached its terminal state
func (r *Room) IsFinished() bool {
	return r.Status == RoomStatusFinished
}

// LoserID returns the participant who did not win, or empty if unfinished
func (r *Room) LoserID() UserID {
	switch {
	case r.WinnerID == "":
		return ""
	case r.WinnerID == r.HostID:
		return r.OpponentID
	default:
		return r.HostID
	}
}

// AssignParticipant places the user into the first open slot.
// Existing participants are reported as Rejoined without any change.
func (r *Room) AssignParticipant(userID UserID) (JoinResult, error) {
	if userID == "" {
		return 0, ErrNotAParticipant
	}
	if r.IsParticipant(userID) {
		return Rejoined, nil
	}

	switch {
	case !r.HasHost():
		r.HostID = userID
		return JoinedAsHost, nil
	case !r.HasOpponent() && !r.IsFinished():
		r.OpponentID = userID
		if r.Status == RoomStatusWaiting {
			r.Status = RoomStatusReady
		}
		return JoinedAsOpponent, nil
	default:
		return 0, ErrRoomFull
	}
}

// SetReady updates the participant's ready flag
func (r *Room) SetReady(userID UserID, ready bool) error {
	if !r.IsParticipant(userID) {
		return ErrNotAParticipant
	}
	if r.Status == RoomStatusPlaying || r.Status == RoomStatusFinished {
		return ErrMatchInProgress
	}

	if userID == r.HostID {
		r.HostReady = ready
	} else {
		r.OpponentReady = ready
	}
	return nil
}

// BeginCountdown moves a ready room into the starting phase
func (r *Room) BeginCountdown(startAt time.Time) {
	at := startAt
	r.Status = RoomStatusStarting
	r.StartAt = &at
}

// RevertCountdown drops back to ready or waiting and clears any start time
func (r *Room) RevertCountdown() {
	r.StartAt = nil
	if r.HasOpponent() {
		r.Status = RoomStatusReady
	} else {
		r.Status = RoomStatusWaiting
	}
}

// GoLive ends the grace period and starts the match
func (r *Room) GoLive() error {
	if r.Status != RoomStatusStarting {
		return ErrCountdownNotOpen
	}
	r.Status = RoomStatusPlaying
	r.StartAt = nil
	return nil
}

// ApplyAttack damages the attacker's counterpart.
// Returns true if this attack finished the match.
func (r *Room) ApplyAttack(attackerID UserID) (bool, error) {
	if !r.IsParticipant(attackerID) {
		return false, ErrNotAParticipant
	}
	if r.Status == RoomStatusFinished {
		return false, ErrRoomFinished
	}
	if r.Status != RoomStatusPlaying {
		return false, ErrMatchNotLive
	}

	if attackerID == r.HostID {
		r.OpponentHP = max(0, r.OpponentHP-AttackDamage)
	} else {
		r.HostHP = max(0, r.HostHP-AttackDamage)
	}

	switch {
	case r.HostHP == 0:
		r.Status = RoomStatusFinished
		r.WinnerID = r.OpponentID
	case r.OpponentHP == 0:
		r.Status = RoomStatusFinished
		r.WinnerID = r.HostID
	default:
		return false, nil
	}
	return true, nil
}

// Validate checks the structural invariants of a room record
func (r *Room) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: room id is empty", ErrInvalidRecord)
	}

	switch r.Status {
	case RoomStatusWaiting, RoomStatusReady, RoomStatusStarting, RoomStatusPlaying, RoomStatusFinished:
	default:
		return fmt.Errorf("%w: room %s has unknown status %q", ErrInvalidRecord, r.ID, r.Status)
	}

	if r.HostHP < 0 || r.HostHP > MaxHP || r.OpponentHP < 0 || r.OpponentHP > MaxHP {
		return fmt.Errorf("%w: room %s hit points out of range", ErrInvalidRecord, r.ID)
	}
	if (r.WinnerID != "") != (r.Status == RoomStatusFinished) {
		return fmt.Errorf("%w: room %s winner does not match status %s", ErrInvalidRecord, r.ID, r.Status)
	}
	if (r.StartAt != nil) != (r.Status == RoomStatusStarting) {
		return fmt.Errorf("%w: room %s start time does not match status %s", ErrInvalidRecord, r.ID, r.Status)
	}
	if r.HasOpponent() && !r.HasHost() {
		return fmt.Errorf("%w: room %s has an opponent but no host", ErrInvalidRecord, r.ID)
	}
	if r.HasOpponent() && r.OpponentID == r.HostID {
		return fmt.Errorf("%w: room %s host and opponent are the same user", ErrInvalidRecord, r.ID)
	}
	if r.WinnerID != "" && !r.IsParticipant(r.WinnerID) {
		return fmt.Errorf("%w: room %s winner is not a participant", ErrInvalidRecord, r.ID)
	}
	return nil
}
