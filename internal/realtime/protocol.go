package realtime

import (
	"encoding/json"
	"errors"

	"github.com/mcoot/duelrooms/internal/api/response"
	"github.com/mcoot/duelrooms/internal/model"
)

// Client -> Server events
const (
	EventJoin        = "join"
	EventJoinGame    = "join_game"
	EventPlayerReady = "player_ready"
	EventAttack      = "attack"
	EventListGames   = "list_games"
)

// Ack error codes
const (
	AckNotFound       = "not_found"
	AckFull           = "full"
	AckNotParticipant = "not_participant"
	AckInProgress     = "in_progress"
	AckNotLive        = "not_live"
	AckFinished       = "finished"
	AckBadRequest     = "bad_request"
	AckServerError    = "server_error"
)

// Envelope is the wrapper for all WebSocket messages
type Envelope struct {
	Event   string          `json:"event"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload is sent with join and join_game
type JoinPayload struct {
	RoomID        string `json:"roomId"`
	ParticipantID string `json:"participantId"`
}

// ReadyPayload is sent with player_ready
type ReadyPayload struct {
	RoomID        string `json:"roomId"`
	ParticipantID string `json:"participantId"`
	Ready         bool   `json:"ready"`
}

// AttackPayload is sent with attack
type AttackPayload struct {
	RoomID     string `json:"roomId"`
	AttackerID string `json:"attackerId"`
}

// Ack answers a client event that carried an id
type Ack struct {
	OK    bool           `json:"ok"`
	Room  *response.Room `json:"room,omitempty"`
	Error string         `json:"error,omitempty"`
}

// ErrorPayload is sent when a message cannot be understood
type ErrorPayload struct {
	Error string `json:"error"`
}

// EncodeEnvelope encodes an outbound event
func EncodeEnvelope(ev Event) ([]byte, error) {
	return json.Marshal(Envelope{
		Event:   ev.Name,
		ID:      ev.ID,
		Payload: ev.Data,
	})
}

// DecodeEnvelope decodes an inbound message
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Event == "" {
		return nil, errors.New("missing event name")
	}
	return &env, nil
}

// AckFor builds the ack for the outcome of an operation
func AckFor(r *model.Room, err error) Ack {
	if err != nil {
		return Ack{OK: false, Error: AckCode(err)}
	}
	ack := Ack{OK: true}
	if r != nil {
		snapshot := response.RoomFromModel(r)
		ack.Room = &snapshot
	}
	return ack
}

// AckCode maps an operation error onto the ack error vocabulary
func AckCode(err error) string {
	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return AckNotFound
	case errors.Is(err, model.ErrRoomFull):
		return AckFull
	case errors.Is(err, model.ErrNotAParticipant):
		return AckNotParticipant
	case errors.Is(err, model.ErrMatchInProgress):
		return AckInProgress
	case errors.Is(err, model.ErrMatchNotLive):
		return AckNotLive
	case errors.Is(err, model.ErrRoomFinished):
		return AckFinished
	default:
		return AckServerError
	}
}
