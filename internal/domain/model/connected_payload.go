package model

// ConnectedPayload is pushed to a socket right after the handshake is accepted.
type ConnectedPayload struct {
	Ok            bool   `json:"ok"`
	ConnectionID  string `json:"connection_id"`
	ServerVersion string `json:"server_version"`
	Message       string `json:"message"`
}

// ServerVersion is reported in the connection handshake.
const ServerVersion = "1.0.0"
