package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/duelrooms/internal/model"
	"github.com/mcoot/duelrooms/internal/services/users"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeRoomNotFound       = "ROOM_NOT_FOUND"
	CodeRoomFull           = "ROOM_FULL"
	CodeRoomFinished       = "ROOM_FINISHED"
	CodeNotParticipant     = "NOT_PARTICIPANT"
	CodeMatchInProgress    = "MATCH_IN_PROGRESS"
	CodeMatchNotLive       = "MATCH_NOT_LIVE"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeDisplayNameTaken   = "DISPLAY_NAME_TAKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrRoomFull):
		return &httpError{http.StatusConflict, APIError{CodeRoomFull, "Room is full"}}
	case errors.Is(err, model.ErrRoomFinished):
		return &httpError{http.StatusConflict, APIError{CodeRoomFinished, "Room has finished"}}
	case errors.Is(err, model.ErrNotAParticipant):
		return &httpError{http.StatusForbidden, APIError{CodeNotParticipant, "Not a participant in this room"}}
	case errors.Is(err, model.ErrMatchInProgress):
		return &httpError{http.StatusConflict, APIError{CodeMatchInProgress, "Match is already in progress"}}
	case errors.Is(err, model.ErrMatchNotLive):
		return &httpError{http.StatusConflict, APIError{CodeMatchNotLive, "Match is not live"}}
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeUserNotFound, "User not found"}}
	case errors.Is(err, model.ErrStoreUnavailable):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeStoreUnavailable, "Record store unavailable"}}

	case errors.Is(err, users.ErrMissingFields):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Display name and password are required"}}
	case errors.Is(err, users.ErrDisplayNameTaken):
		return &httpError{http.StatusConflict, APIError{CodeDisplayNameTaken, "Display name already taken"}}
	case errors.Is(err, users.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid display name or password"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
