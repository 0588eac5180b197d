package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// OperatorNotifier delivers alerts to the admin chat. Silent alerts are sent
// without a client-side notification sound.
type OperatorNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewOperatorNotifier creates a notifier targeting the admin chat.
func NewOperatorNotifier(api *tgbotapi.BotAPI, chatID int64) *OperatorNotifier {
	return &OperatorNotifier{api: api, chatID: chatID}
}

// Notify sends one alert message.
func (n *OperatorNotifier) Notify(ctx context.Context, text string, silent bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableNotification = silent
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send operator alert: %w", err)
	}
	return nil
}
