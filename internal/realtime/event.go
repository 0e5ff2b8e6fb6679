package realtime

import (
	"encoding/json"

	"github.com/mcoot/duelrooms/internal/api/response"
	"github.com/mcoot/duelrooms/internal/model"
)

// Event names shared by every transport
const (
	EventGameUpdate   = "game:update"
	EventGameFinished = "game:finished"
	EventGamesList    = "games:list"
	EventAck          = "ack"
	EventError        = "error"
	EventConnected    = "connected"
)

// Event is a named JSON payload queued for a subscriber
type Event struct {
	Name string
	ID   string // Set on acks; echoes the request id
	Data json.RawMessage
}

// NewEvent encodes payload as the event data
func NewEvent(name string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Data: data}, nil
}

// RoomEvent builds a room snapshot event
func RoomEvent(name string, r *model.Room) Event {
	return mustEvent(name, response.RoomFromModel(r))
}

// ListEvent builds a games:list event
func ListEvent(rooms []*model.Room) Event {
	return mustEvent(EventGamesList, response.RoomsFromModel(rooms))
}

// mustEvent is for payloads made only of strings, numbers, bools and times
func mustEvent(name string, payload any) Event {
	ev, err := NewEvent(name, payload)
	if err != nil {
		panic(err)
	}
	return ev
}
