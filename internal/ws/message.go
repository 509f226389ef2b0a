package ws

import "time"

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	// MessageSessionState is sent once on connect with the current session.
	MessageSessionState       MessageType = "session.state"
	MessageSessionEstablished MessageType = "session.established"
	MessageSessionCleared     MessageType = "session.cleared"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      SessionData `json:"data"`
}

// SessionData describes the session a message refers to. Reason is set on
// session.cleared ("logout" or "expired").
type SessionData struct {
	Authenticated bool   `json:"authenticated"`
	ServerURL     string `json:"server_url,omitempty"`
	Username      string `json:"username,omitempty"`
	Reason        string `json:"reason,omitempty"`
}
