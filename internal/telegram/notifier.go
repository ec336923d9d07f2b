// Package telegram delivers chat notifications to users through the
// Telegram Bot API.
package telegram

import (
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// ErrNoChat is returned when the recipient has not linked a Telegram chat.
var ErrNoChat = errors.New("telegram chat not linked")

// BotAPI is the part of *tgbotapi.BotAPI the notifier uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends plain text messages to Telegram chats.
type Notifier struct {
	bot BotAPI
}

// NewNotifier authorizes the bot behind token.
func NewNotifier(token string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorize telegram bot: %w", err)
	}
	bot.Debug = false
	logrus.WithField("component", "telegram").Infof("Authorized on account %s", bot.Self.UserName)
	return &Notifier{bot: bot}, nil
}

// NewNotifierWithBot wraps an existing bot client.
func NewNotifierWithBot(bot BotAPI) *Notifier {
	return &Notifier{bot: bot}
}

// SendText delivers text to chatID.
func (n *Notifier) SendText(chatID int64, text string) error {
	if chatID == 0 {
		return ErrNoChat
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
