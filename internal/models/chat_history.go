package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TempIDPrefix marks identifiers of optimistic, not yet persisted messages.
const TempIDPrefix = "temp-"

// Message is one chat utterance in a tutor/student room.
// ID is assigned only when the message is persisted; optimistic client copies
// carry a TempIDPrefix identifier instead.
type Message struct {
	// ID is the durable identifier (UUID).
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	// RoomID is the composite room identifier, see package room.
	RoomID string `gorm:"type:varchar(255);not null;index:idx_room_ts,priority:1" json:"room_id"`
	// SenderID is the authenticated id of the author.
	SenderID string `gorm:"type:varchar(255);not null;index" json:"sender_id"`
	// SenderName is denormalized at send time.
	SenderName string `gorm:"type:text;not null" json:"sender_name"`
	// Body is the text of the message.
	Body string `gorm:"type:text;not null" json:"body"`
	// Timestamp is assigned by the server in arrival order.
	Timestamp time.Time `gorm:"not null;index:idx_room_ts,priority:2" json:"timestamp"`

	// ClientToken correlates a canonical message with the optimistic copy
	// that produced it. It is echoed in broadcasts and never stored.
	ClientToken string `gorm:"-" json:"client_token,omitempty"`
}

// BeforeCreate assigns a durable id unless one is already set. Temporary
// client ids are never persisted.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" || m.IsTemporary() {
		m.ID = uuid.New().String()
	}
	return
}

// IsTemporary reports whether the message is an unconfirmed optimistic copy.
func (m *Message) IsTemporary() bool {
	return m.ID == "" || strings.HasPrefix(m.ID, TempIDPrefix)
}
