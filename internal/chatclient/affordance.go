package chatclient

import (
	"github.com/Divine-P-77777/studylocal/internal/localization"
	"github.com/Divine-P-77777/studylocal/internal/models"
)

// DealAffordance is the deal action a chat participant is offered.
type DealAffordance string

const (
	// AffordanceStartDeal lets the tutor initiate a deal.
	AffordanceStartDeal DealAffordance = "start-deal"
	// AffordanceAwaitStudent tells the tutor the student has to confirm.
	AffordanceAwaitStudent DealAffordance = "await-student"
	// AffordanceConfirmOrDecline lets the student answer a pending deal.
	AffordanceConfirmOrDecline DealAffordance = "confirm-or-decline"
	// AffordanceDealDone marks a confirmed or completed deal.
	AffordanceDealDone DealAffordance = "deal-done"
	// AffordanceTutorOnly tells a student that only tutors start deals.
	AffordanceTutorOnly DealAffordance = "tutor-only"
)

// Announcement keys of the deal lines posted into the chat.
const (
	AnnounceDealInitiated = "deal_initiated"
	AnnounceDealConfirmed = "deal_confirmed"
	AnnounceDealDeclined  = "deal_declined"
)

// Affordance returns the action to offer given the active enrolment of the
// room (nil when none) and the side of the viewer.
func Affordance(active *models.Enrolment, isTutor bool) DealAffordance {
	if active == nil || active.Status == models.EnrolmentCancelled {
		if isTutor {
			return AffordanceStartDeal
		}
		return AffordanceTutorOnly
	}
	switch active.Status {
	case models.EnrolmentPending:
		if isTutor {
			return AffordanceAwaitStudent
		}
		return AffordanceConfirmOrDecline
	default:
		return AffordanceDealDone
	}
}

// Announce posts the localized deal line for key into the room.
func (s *Session) Announce(l *localization.Localizer, lang, key string) (models.Message, error) {
	return s.Send(l.GetString(lang, key))
}
