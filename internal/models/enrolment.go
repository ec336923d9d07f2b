package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnrolmentStatus is the lifecycle state of a deal.
type EnrolmentStatus string

const (
	EnrolmentPending   EnrolmentStatus = "pending"
	EnrolmentConfirmed EnrolmentStatus = "confirmed"
	EnrolmentCancelled EnrolmentStatus = "cancelled"
	// EnrolmentCompleted is reserved; no transition reaches it yet.
	EnrolmentCompleted EnrolmentStatus = "completed"
)

// ActiveEnrolmentStatuses are the states counted by the one-active-deal-per-pair rule.
var ActiveEnrolmentStatuses = []EnrolmentStatus{EnrolmentPending, EnrolmentConfirmed}

// IsActive reports whether the status blocks a new deal for the same pair.
func (s EnrolmentStatus) IsActive() bool {
	return s == EnrolmentPending || s == EnrolmentConfirmed
}

// IsTerminal reports whether no further transition is possible.
func (s EnrolmentStatus) IsTerminal() bool {
	return s == EnrolmentCancelled || s == EnrolmentCompleted
}

// Enrolment is the engagement between one tutor profile and one student.
// Records are never deleted; cancellation is a status change.
type Enrolment struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TutorID     string          `gorm:"type:varchar(255);not null;index:idx_enrolment_pair,priority:1" json:"tutor_id"`
	StudentID   string          `gorm:"type:varchar(255);not null;index:idx_enrolment_pair,priority:2;index" json:"student_id"`
	Status      EnrolmentStatus `gorm:"type:varchar(16);not null;default:pending;index" json:"status"`
	Subject     string          `gorm:"type:text" json:"subject,omitempty"`
	AgreedFee   *int64          `json:"agreed_fee,omitempty"`
	StartDate   *time.Time      `json:"start_date,omitempty"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
	CancelledBy string          `gorm:"type:varchar(255)" json:"cancelled_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BeforeCreate fills in the id and the initial status.
func (e *Enrolment) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = EnrolmentPending
	}
	return
}
