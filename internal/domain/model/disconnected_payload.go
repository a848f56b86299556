package model

// DisconnectedPayload represents the notification sent before the server closes the socket.
type DisconnectedPayload struct {
	Reason string `json:"reason"`
	Code   string `json:"code,omitempty"` // Optional: "SHUTDOWN", "EVICTED", "TIMEOUT"
}

// ErrorPayload is a typed error frame addressed to the originating connection only.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
