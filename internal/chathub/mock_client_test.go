package chathub_test

import (
	"sync"

	"github.com/Divine-P-77777/studylocal/internal/models"
)

type MockClient struct {
	identity    models.Identity
	name        string
	RecvChannel chan models.Event

	mu     sync.Mutex
	closed bool
}

func newMockClient(userID string) *MockClient {
	return newMockTutorClient(userID, "")
}

func newMockTutorClient(userID, tutorProfileID string) *MockClient {
	return &MockClient{
		identity:    models.Identity{UserID: userID, TutorProfileID: tutorProfileID},
		name:        "name of " + userID,
		RecvChannel: make(chan models.Event, 32),
	}
}

func (c *MockClient) GetUserID() string                   { return c.identity.UserID }
func (c *MockClient) GetIdentity() models.Identity        { return c.identity }
func (c *MockClient) GetDisplayName() string              { return c.name }
func (c *MockClient) GetSendChannel() chan<- models.Event { return c.RecvChannel }

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
