package request

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	HostID string `json:"hostId"`
}

// RegisterRequest is the request body for registering a user
type RegisterRequest struct {
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}
