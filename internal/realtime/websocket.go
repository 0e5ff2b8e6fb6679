package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/services/room"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second    // time allowed to read the next pong message from the peer
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 4096
)

// Matchmaker places connections into rooms
type Matchmaker interface {
	JoinGame(ctx context.Context, roomID model.RoomID, participantID model.UserID, sub room.Subscription) (*model.Room, error)
	Join(ctx context.Context, roomID model.RoomID, sub room.Subscription) (*model.Room, error)
}

// ReadySetter toggles ready flags
type ReadySetter interface {
	SetReady(ctx context.Context, roomID model.RoomID, participantID model.UserID, ready bool) (*model.Room, error)
}

// Attacker resolves attacks
type Attacker interface {
	Attack(ctx context.Context, roomID model.RoomID, attackerID model.UserID) (*model.Room, error)
}

// WSHandler serves the bidirectional realtime endpoint
type WSHandler struct {
	upgrader   websocket.Upgrader
	hubManager *HubManager
	matchmaker Matchmaker
	ready      ReadySetter
	attacker   Attacker
	rooms      RoomLister
	logger     *slog.Logger
}

// NewWSHandler creates a new WebSocket handler
func NewWSHandler(
	hubManager *HubManager,
	matchmaker Matchmaker,
	ready ReadySetter,
	attacker Attacker,
	rooms RoomLister,
	logger *slog.Logger,
) *WSHandler {
	return &WSHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // participant ids travel in payloads; there is no cookie auth to protect
			},
		},
		hubManager: hubManager,
		matchmaker: matchmaker,
		ready:      ready,
		attacker:   attacker,
		rooms:      rooms,
		logger:     logger.With(slog.String("component", "websocket")),
	}
}

// ServeHTTP upgrades the connection and runs it until the peer goes away
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &session{
		handler: h,
		conn:    conn,
		client:  NewClient(),
	}
	s.logger = h.logger.With(slog.String("client_id", s.client.ID()))
	s.logger.Info("websocket connected", slog.String("remote_addr", r.RemoteAddr))

	h.hubManager.Subscribe(GlobalChannel, s.client)
	s.sendList(ctx)

	go s.writePump()
	s.readPump(ctx)
}

// Ensure session implements the services' subscription
var _ room.Subscription = (*session)(nil)

// session is one WebSocket connection
type session struct {
	handler *WSHandler
	conn    *websocket.Conn
	client  *Client
	logger  *slog.Logger
}

// Subscribe attaches the connection to a room's broadcasts
func (s *session) Subscribe(id model.RoomID) {
	s.handler.hubManager.Subscribe(RoomChannel(id), s.client)
}

// readPump reads and dispatches messages until the connection fails
func (s *session) readPump(ctx context.Context) {
	defer func() {
		s.handler.hubManager.UnsubscribeAll(s.client)
		s.client.Close()
		_ = s.conn.Close()
		s.logger.Info("websocket disconnected")
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read error", slog.Any("error", err))
			}
			return
		}
		s.handleMessage(ctx, message)
	}
}

// writePump is the only writer on the connection
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case ev := <-s.client.Events():
			data, err := EncodeEnvelope(ev)
			if err != nil {
				s.logger.Error("failed to encode event", slog.String("event", ev.Name), slog.Any("error", err))
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.client.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *session) handleMessage(ctx context.Context, data []byte) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		s.reply(ctx, mustEvent(EventError, ErrorPayload{Error: "malformed envelope"}))
		return
	}

	switch env.Event {
	case EventJoin:
		var p JoinPayload
		if !s.decode(ctx, env, &p) {
			return
		}
		r, err := s.handler.matchmaker.Join(ctx, model.RoomID(p.RoomID), s)
		if err == nil {
			s.reply(ctx, RoomEvent(EventGameUpdate, r))
		}
		s.ack(ctx, env, r, err)

	case EventJoinGame:
		var p JoinPayload
		if !s.decode(ctx, env, &p) {
			return
		}
		r, err := s.handler.matchmaker.JoinGame(ctx, model.RoomID(p.RoomID), model.UserID(p.ParticipantID), s)
		s.logOutcome(env.Event, p.RoomID, err)
		s.ack(ctx, env, r, err)

	case EventPlayerReady:
		var p ReadyPayload
		if !s.decode(ctx, env, &p) {
			return
		}
		r, err := s.handler.ready.SetReady(ctx, model.RoomID(p.RoomID), model.UserID(p.ParticipantID), p.Ready)
		s.logOutcome(env.Event, p.RoomID, err)
		r, err = ignoreStranger(r, err)
		s.ack(ctx, env, r, err)

	case EventAttack:
		var p AttackPayload
		if !s.decode(ctx, env, &p) {
			return
		}
		r, err := s.handler.attacker.Attack(ctx, model.RoomID(p.RoomID), model.UserID(p.AttackerID))
		s.logOutcome(env.Event, p.RoomID, err)
		r, err = ignoreStranger(r, err)
		s.ack(ctx, env, r, err)

	case EventListGames:
		s.sendList(ctx)
		s.ack(ctx, env, nil, nil)

	default:
		s.reply(ctx, mustEvent(EventError, ErrorPayload{Error: "unknown event " + env.Event}))
	}
}

// ignoreStranger hides events from ids outside the room. Stale clients get a bare
// acknowledgement with no room and learn nothing about it.
func ignoreStranger(r *model.Room, err error) (*model.Room, error) {
	if errors.Is(err, model.ErrNotAParticipant) {
		return nil, nil
	}
	return r, err
}

func (s *session) decode(ctx context.Context, env *Envelope, v any) bool {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		s.reply(ctx, mustEvent(EventError, ErrorPayload{Error: "malformed payload for " + env.Event}))
		if env.ID != "" {
			ev := mustEvent(EventAck, Ack{OK: false, Error: AckBadRequest})
			ev.ID = env.ID
			s.reply(ctx, ev)
		}
		return false
	}
	return true
}

// ack replies to events that carried an id
func (s *session) ack(ctx context.Context, env *Envelope, r *model.Room, err error) {
	if env.ID == "" {
		return
	}
	ev := mustEvent(EventAck, AckFor(r, err))
	ev.ID = env.ID
	s.reply(ctx, ev)
}

func (s *session) sendList(ctx context.Context) {
	rooms, err := s.handler.rooms.ListRooms(ctx)
	if err != nil {
		s.logger.Error("failed to load room list", slog.Any("error", err))
		return
	}
	s.reply(ctx, ListEvent(rooms))
}

func (s *session) reply(ctx context.Context, ev Event) {
	s.client.Deliver(ctx, ev)
}

// Rejected events are expected traffic; only store failures are worth a warning
func (s *session) logOutcome(event, roomID string, err error) {
	if err == nil {
		return
	}
	level := slog.LevelDebug
	if AckCode(err) == AckServerError {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, "event rejected",
		slog.String("event", event),
		slog.String("room_id", roomID),
		slog.Any("error", err))
}
