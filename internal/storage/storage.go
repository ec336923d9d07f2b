// Package storage is the persistence collaborator of the chat core: messages
// and enrolments live in a relational database (postgres in production,
// sqlite for tests and local runs), presence lives in redis.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Divine-P-77777/studylocal/internal/models"
	"gorm.io/gorm"
)

type Storage interface {
	InsertMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, roomID string) ([]models.Message, error)
	FindMessage(ctx context.Context, id string) (*models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	LastMessage(ctx context.Context, roomID string) (*models.Message, error)
	DistinctRoomIDs(ctx context.Context, senderID string, likePatterns ...string) ([]string, error)

	CreateEnrolment(ctx context.Context, e *models.Enrolment) error
	FindEnrolment(ctx context.Context, id string) (*models.Enrolment, error)
	FindActiveEnrolment(ctx context.Context, tutorID, studentID string) (*models.Enrolment, error)
	TransitionEnrolment(ctx context.Context, id string, from []models.EnrolmentStatus, updates map[string]interface{}) (bool, error)
	ListEnrolmentsByStudent(ctx context.Context, studentID string) ([]models.Enrolment, error)
	ListEnrolmentsByTutor(ctx context.Context, tutorID string) ([]models.Enrolment, error)
	ListEnrolmentsForPair(ctx context.Context, tutorID, studentID string) ([]models.Enrolment, error)

	UserByID(ctx context.Context, id string) (*models.User, error)
	TutorProfileByID(ctx context.Context, id string) (*models.TutorProfile, error)
	TutorProfileByUserID(ctx context.Context, userID string) (*models.TutorProfile, error)
}

type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor.
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// activeEnrolmentIndex backs the one-active-deal-per-pair rule when two
// creates race past the service check.
const activeEnrolmentIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_enrolments_active_pair
	ON enrolments (tutor_id, student_id)
	WHERE status IN ('pending', 'confirmed')`

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.TutorProfile{},
		&models.Message{},
		&models.Enrolment{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(activeEnrolmentIndex).Error; err != nil {
		return fmt.Errorf("create active enrolment index: %w", err)
	}
	return nil
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}
