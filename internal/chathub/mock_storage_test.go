package chathub_test

import (
	"context"

	"github.com/Divine-P-77777/studylocal/internal/messages"
	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockStore is a testify mock of chathub.MessageStore.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Append(ctx context.Context, d messages.Draft) (*models.Message, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockStore) Find(ctx context.Context, messageID string) (*models.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, messageID string) error {
	return m.Called(ctx, messageID).Error(0)
}

// MockNotifier records offline notification requests.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyOffline(ctx context.Context, msg *models.Message, sender models.Identity) error {
	return m.Called(ctx, msg, sender).Error(0)
}

// MockPresence records presence updates.
type MockPresence struct {
	mock.Mock
}

func (m *MockPresence) SetOnline(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockPresence) SetOffline(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockPresence) Touch(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
