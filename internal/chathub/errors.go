package chathub

import "errors"

var (
	// ErrNotAuthorized hides whether a room exists from non-participants.
	ErrNotAuthorized = errors.New("not authorized")
	ErrNotJoined     = errors.New("join the room first")
	ErrRoomFull      = errors.New("room is full")
	ErrUnknownEvent  = errors.New("unknown event type")
	ErrHubStopped    = errors.New("chat hub is not running")
)
