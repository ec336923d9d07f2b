// Package enrolment implements the tutor/student deal lifecycle:
//
//	(none)    --create (tutor)-->    pending
//	pending   --confirm (student)--> confirmed
//	pending   --cancel (either)-->   cancelled
//	confirmed --cancel (either)-->   cancelled
//
// At most one pending or confirmed enrolment exists per pair. The service
// never writes chat messages; announcing a transition is up to the caller.
package enrolment

import (
	"context"
	"errors"
	"time"

	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/Divine-P-77777/studylocal/internal/storage"
	"github.com/sirupsen/logrus"
)

// Repository is the part of the persistence collaborator the service needs.
type Repository interface {
	CreateEnrolment(ctx context.Context, e *models.Enrolment) error
	FindEnrolment(ctx context.Context, id string) (*models.Enrolment, error)
	FindActiveEnrolment(ctx context.Context, tutorID, studentID string) (*models.Enrolment, error)
	TransitionEnrolment(ctx context.Context, id string, from []models.EnrolmentStatus, updates map[string]interface{}) (bool, error)
	ListEnrolmentsByStudent(ctx context.Context, studentID string) ([]models.Enrolment, error)
	ListEnrolmentsByTutor(ctx context.Context, tutorID string) ([]models.Enrolment, error)
}

// Terms are the optional details agreed when a deal is initiated.
type Terms struct {
	Subject   string
	AgreedFee *int64
	StartDate *time.Time
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create opens a pending enrolment. Only the owner of the tutor profile may
// initiate it.
func (s *Service) Create(ctx context.Context, caller models.Identity, tutorID, studentID string, terms Terms) (*models.Enrolment, error) {
	if tutorID == "" || studentID == "" || caller.TutorProfileID == "" || caller.TutorProfileID != tutorID {
		return nil, ErrNotAuthorized
	}
	if terms.AgreedFee != nil && *terms.AgreedFee < 0 {
		return nil, ErrInvalidTerms
	}

	active, err := s.repo.FindActiveEnrolment(ctx, tutorID, studentID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrAlreadyActive
	}

	e := &models.Enrolment{
		TutorID:   tutorID,
		StudentID: studentID,
		Status:    models.EnrolmentPending,
		Subject:   terms.Subject,
		AgreedFee: terms.AgreedFee,
		StartDate: terms.StartDate,
	}
	if err := s.repo.CreateEnrolment(ctx, e); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrAlreadyActive
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"enrolment_id": e.ID,
		"tutor_id":     tutorID,
		"student_id":   studentID,
	}).Info("Enrolment created")
	return e, nil
}

// Confirm accepts a pending enrolment on behalf of its student.
func (s *Service) Confirm(ctx context.Context, caller models.Identity, id string) (*models.Enrolment, error) {
	e, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.UserID == "" || caller.UserID != e.StudentID {
		return nil, ErrNotAuthorized
	}
	if e.Status != models.EnrolmentPending {
		return nil, ErrInvalidTransition
	}

	now := s.now().UTC()
	return s.transition(ctx, e, []models.EnrolmentStatus{models.EnrolmentPending}, map[string]interface{}{
		"status":       models.EnrolmentConfirmed,
		"confirmed_at": now,
		"updated_at":   now,
	})
}

// Cancel ends a pending or confirmed enrolment. Either party may cancel.
func (s *Service) Cancel(ctx context.Context, caller models.Identity, id string) (*models.Enrolment, error) {
	e, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isParty(caller, e) {
		return nil, ErrNotAuthorized
	}
	if !e.Status.IsActive() {
		return nil, ErrInvalidTransition
	}

	return s.transition(ctx, e, models.ActiveEnrolmentStatuses, map[string]interface{}{
		"status":       models.EnrolmentCancelled,
		"cancelled_by": caller.UserID,
		"updated_at":   s.now().UTC(),
	})
}

// FindActiveForPair returns the pending or confirmed enrolment of the pair,
// or nil when there is none.
func (s *Service) FindActiveForPair(ctx context.Context, tutorID, studentID string) (*models.Enrolment, error) {
	return s.repo.FindActiveEnrolment(ctx, tutorID, studentID)
}

// ListForCaller returns the caller's enrolments, split by the side the
// caller is on. asTutor is empty for callers without a tutor profile.
func (s *Service) ListForCaller(ctx context.Context, caller models.Identity) (asStudent, asTutor []models.Enrolment, err error) {
	asStudent, err = s.repo.ListEnrolmentsByStudent(ctx, caller.UserID)
	if err != nil {
		return nil, nil, err
	}
	asTutor = []models.Enrolment{}
	if caller.TutorProfileID != "" {
		asTutor, err = s.repo.ListEnrolmentsByTutor(ctx, caller.TutorProfileID)
		if err != nil {
			return nil, nil, err
		}
	}
	return asStudent, asTutor, nil
}

func (s *Service) find(ctx context.Context, id string) (*models.Enrolment, error) {
	e, err := s.repo.FindEnrolment(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// transition applies a conditional update and reloads the record. Losing a
// race against another transition reports ErrInvalidTransition.
func (s *Service) transition(ctx context.Context, e *models.Enrolment, from []models.EnrolmentStatus, updates map[string]interface{}) (*models.Enrolment, error) {
	changed, err := s.repo.TransitionEnrolment(ctx, e.ID, from, updates)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrInvalidTransition
	}

	updated, err := s.find(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"enrolment_id": e.ID,
		"from":         e.Status,
		"to":           updated.Status,
	}).Info("Enrolment transitioned")
	return updated, nil
}

func isParty(caller models.Identity, e *models.Enrolment) bool {
	if caller.UserID != "" && caller.UserID == e.StudentID {
		return true
	}
	return caller.TutorProfileID != "" && caller.TutorProfileID == e.TutorID
}
