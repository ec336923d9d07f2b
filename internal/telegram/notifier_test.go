package telegram

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBot struct {
	mock.Mock
}

func (m *MockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(1)
}

func TestSendText(t *testing.T) {
	bot := new(MockBot)
	bot.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.Text == "New message"
	})).Return(tgbotapi.Message{}, nil).Once()

	n := NewNotifierWithBot(bot)
	require.NoError(t, n.SendText(42, "New message"))
	bot.AssertExpectations(t)
}

func TestSendText_Errors(t *testing.T) {
	bot := new(MockBot)
	n := NewNotifierWithBot(bot)

	assert.ErrorIs(t, n.SendText(0, "x"), ErrNoChat)
	bot.AssertNotCalled(t, "Send", mock.Anything)

	bot.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("blocked by user"))
	assert.ErrorContains(t, n.SendText(7, "x"), "blocked by user")
}
