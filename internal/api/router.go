package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/duelrooms/internal/api/handler"
	"github.com/mcoot/duelrooms/internal/api/middleware"
	"github.com/mcoot/duelrooms/internal/api/response"
	sharedmw "github.com/mcoot/duelrooms/internal/middleware"
	"github.com/mcoot/duelrooms/internal/realtime"
	"github.com/mcoot/duelrooms/internal/services/room"
	"github.com/mcoot/duelrooms/internal/services/users"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	RoomService *room.Service
	UserService *users.Service
	HubManager  *realtime.HubManager
	WSHandler   http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	roomHandler := handler.NewRoomHandler(cfg.RoomService, cfg.HubManager)
	userHandler := handler.NewUserHandler(cfg.UserService)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(sharedmw.Logging(cfg.Logger))

	// Event streams are registered ahead of /rooms/{id} so "events" is never read as an id
	api.HandleFunc("/rooms/events", roomHandler.ListEvents).Methods(http.MethodGet)
	api.HandleFunc("/rooms", roomHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/rooms", roomHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}/events", roomHandler.RoomEvents).Methods(http.MethodGet)

	api.HandleFunc("/users", userHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/users", userHandler.Leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/users/login", userHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", userHandler.Get).Methods(http.MethodGet)

	if cfg.WSHandler != nil {
		api.Handle("/ws", cfg.WSHandler).Methods(http.MethodGet)
	}

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
