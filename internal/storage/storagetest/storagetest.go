// Package storagetest provides a migrated in-memory database for tests.
package storagetest

import (
	"testing"

	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/Divine-P-77777/studylocal/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// NewService returns a storage service backed by a private in-memory sqlite
// database that is closed when the test ends.
func NewService(t testing.TB) *storage.Service {
	t.Helper()

	db, err := storage.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return storage.NewStorageService(db)
}

// SeedTutor stores a tutor account together with its profile.
func SeedTutor(t testing.TB, s *storage.Service, userID, profileID, name string) *models.TutorProfile {
	t.Helper()

	require.NoError(t, s.DB.Create(&models.User{ID: userID, FullName: name, Role: "tutor"}).Error)
	profile := &models.TutorProfile{
		ID:       profileID,
		UserID:   userID,
		FullName: name,
		PhotoURL: "https://img.example/" + profileID + ".png",
		Subjects: []string{"maths"},
	}
	require.NoError(t, s.DB.Create(profile).Error)
	return profile
}

// SeedStudent stores a student account.
func SeedStudent(t testing.TB, s *storage.Service, userID, name string) *models.User {
	t.Helper()

	user := &models.User{ID: userID, FullName: name, Role: "student", PhotoURL: "https://img.example/" + userID + ".png"}
	require.NoError(t, s.DB.Create(user).Error)
	return user
}
