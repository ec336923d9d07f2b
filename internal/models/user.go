package models

import (
	"time"

	"github.com/lib/pq"
)

// User is a marketplace account. Accounts are managed by the profile service;
// the chat core only reads them (display names, photos, notification targets).
type User struct {
	ID             string    `gorm:"primaryKey;type:varchar(255)" json:"id"` // auth provider subject
	Email          string    `gorm:"type:text" json:"email"`
	Role           string    `gorm:"type:varchar(16);default:student" json:"role"`
	FullName       string    `gorm:"type:text" json:"full_name"`
	PhotoURL       string    `gorm:"type:text" json:"photo_url,omitempty"`
	Language       string    `gorm:"type:varchar(8);default:en" json:"language"`
	TelegramChatID int64     `gorm:"index" json:"-"` // 0 when notifications are not linked
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DisplayName returns the name shown next to messages.
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return "Anonymous"
	case u.FullName != "":
		return u.FullName
	case u.Email != "":
		return u.Email
	default:
		return "Anonymous"
	}
}

// TutorProfile is the public profile a tutor account owns. Its ID is the
// tutor half of every room the tutor takes part in.
type TutorProfile struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"user_id"`
	FullName  string         `gorm:"type:text" json:"full_name"`
	PhotoURL  string         `gorm:"type:text" json:"photo_url,omitempty"`
	Subjects  pq.StringArray `gorm:"type:text[]" json:"subjects"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Identity is the authenticated caller as seen by the chat core.
type Identity struct {
	UserID         string
	TutorProfileID string // empty unless the caller owns a tutor profile
}
