package session

// StatusResponse represents a controller session status response
type StatusResponse struct {
	Endpoint        string `json:"endpoint"`
	Status          string `json:"status"`
	Connected       bool   `json:"connected"`
	ConnectedSince  string `json:"connected_since,omitempty"`
	ConnectAttempts int    `json:"connect_attempts"`
	LastError       string `json:"last_error,omitempty"`
	Timestamp       string `json:"timestamp"`
}
