package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/duelrooms/internal/api/request"
	"github.com/mcoot/duelrooms/internal/api/response"
	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/realtime"
	"github.com/mcoot/duelrooms/internal/services/room"
)

// RoomHandler handles room-related endpoints
type RoomHandler struct {
	rooms      *room.Service
	hubManager *realtime.HubManager
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms *room.Service, hubManager *realtime.HubManager) *RoomHandler {
	return &RoomHandler{
		rooms:      rooms,
		hubManager: hubManager,
	}
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}

	rm, err := h.rooms.CreateRoom(r.Context(), model.UserID(req.HostID))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RoomFromModel(rm))
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomsFromModel(rooms))
}

// Get handles GET /api/v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.RoomID(mux.Vars(r)["id"])

	rm, err := h.rooms.GetRoom(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(rm))
}

// ListEvents handles GET /api/v1/rooms/events.
// The stream opens with the current list and then follows every change.
func (h *RoomHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	realtime.ServeSSE(w, r, h.hubManager, realtime.GlobalChannel, realtime.ListEvent(rooms))
}

// RoomEvents handles GET /api/v1/rooms/{id}/events
func (h *RoomHandler) RoomEvents(w http.ResponseWriter, r *http.Request) {
	id := model.RoomID(mux.Vars(r)["id"])

	rm, err := h.rooms.GetRoom(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	realtime.ServeSSE(w, r, h.hubManager, realtime.RoomChannel(id), realtime.RoomEvent(realtime.EventGameUpdate, rm))
}
