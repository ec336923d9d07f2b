package models

// Event types carried over the realtime channel.
const (
	// client -> server
	EventJoinRoom      = "join-room"
	EventLeaveRoom     = "leave-room"
	EventSendMessage   = "send-message"
	EventDeleteMessage = "delete-message"
	EventUserOnline    = "user-online"

	// server -> client
	EventReceiveMessage = "receive-message"
	EventMessageDeleted = "message-deleted"
	EventUserStatus     = "user-status"
	EventJoined         = "joined"
	EventError          = "error"
)

// Presence values of a user-status event.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Event is the envelope exchanged with realtime clients and between broker
// instances. Fields irrelevant to a given Type are left empty.
type Event struct {
	Type        string   `json:"type"`
	RoomID      string   `json:"room_id,omitempty"`
	Body        string   `json:"body,omitempty"`
	ClientToken string   `json:"client_token,omitempty"`
	MessageID   string   `json:"message_id,omitempty"`
	Message     *Message `json:"message,omitempty"`
	UserID      string   `json:"user_id,omitempty"`
	Status      string   `json:"status,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// IsGlobal reports whether the event is fanned out to every connection
// instead of the members of one room.
func (e Event) IsGlobal() bool {
	return e.Type == EventUserStatus
}
