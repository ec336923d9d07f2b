package storage

import (
	"context"

	"github.com/Divine-P-77777/studylocal/internal/models"
)

// Users and tutor profiles are owned by the profile service; these lookups
// are read-only.

func (s *Service) UserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Service) TutorProfileByID(ctx context.Context, id string) (*models.TutorProfile, error) {
	var profile models.TutorProfile
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

// TutorProfileByUserID returns the profile owned by a user, or ErrNotFound
// for accounts that are not tutors.
func (s *Service) TutorProfileByUserID(ctx context.Context, userID string) (*models.TutorProfile, error) {
	var profile models.TutorProfile
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}
