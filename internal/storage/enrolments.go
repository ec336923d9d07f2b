package storage

import (
	"context"
	"errors"

	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CreateEnrolment inserts a new record. A concurrent active record for the
// same pair surfaces as ErrDuplicate.
func (s *Service) CreateEnrolment(ctx context.Context, e *models.Enrolment) error {
	if err := s.DB.WithContext(ctx).Create(e).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *Service) FindEnrolment(ctx context.Context, id string) (*models.Enrolment, error) {
	var e models.Enrolment
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

// FindActiveEnrolment returns the pending or confirmed record of the pair,
// or nil when there is none.
func (s *Service) FindActiveEnrolment(ctx context.Context, tutorID, studentID string) (*models.Enrolment, error) {
	var e models.Enrolment
	err := s.DB.WithContext(ctx).
		Where("tutor_id = ? AND student_id = ?", tutorID, studentID).
		Where("status IN ?", models.ActiveEnrolmentStatuses).
		Order("created_at desc").
		First(&e).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"tutor_id":   tutorID,
			"student_id": studentID,
		}).Error("Failed to find active enrolment")
		return nil, err
	}
	return &e, nil
}

// TransitionEnrolment applies updates only if the record is still in one of
// the from states. It reports whether the row was changed, so two concurrent
// transitions cannot both succeed.
func (s *Service) TransitionEnrolment(ctx context.Context, id string, from []models.EnrolmentStatus, updates map[string]interface{}) (bool, error) {
	result := s.DB.WithContext(ctx).
		Model(&models.Enrolment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *Service) ListEnrolmentsByStudent(ctx context.Context, studentID string) ([]models.Enrolment, error) {
	return s.listEnrolments(ctx, "student_id = ?", studentID)
}

func (s *Service) ListEnrolmentsByTutor(ctx context.Context, tutorID string) ([]models.Enrolment, error) {
	return s.listEnrolments(ctx, "tutor_id = ?", tutorID)
}

// ListEnrolmentsForPair returns the full history of a pair, newest first.
func (s *Service) ListEnrolmentsForPair(ctx context.Context, tutorID, studentID string) ([]models.Enrolment, error) {
	return s.listEnrolments(ctx, "tutor_id = ? AND student_id = ?", tutorID, studentID)
}

func (s *Service) listEnrolments(ctx context.Context, cond string, args ...interface{}) ([]models.Enrolment, error) {
	list := make([]models.Enrolment, 0)
	if err := s.DB.WithContext(ctx).
		Where(cond, args...).
		Order("created_at desc").Order("id desc").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
