// Package notify alerts a manager chat about degraded-mode transitions so a
// long-offline terminal does not go unnoticed.
package notify

import (
	"encoding/json"
	"fmt"

	"frontdesk/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Sender is the subset of the bot API the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier forwards connectivity transitions to a Telegram chat.
type TelegramNotifier struct {
	sender Sender
	chatID int64
	logger *zerolog.Logger
}

func NewTelegramNotifier(sender Sender, chatID int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, chatID: chatID, logger: logger}
}

// Attach subscribes the notifier to connectivity events on the bus.
func (n *TelegramNotifier) Attach(bus *events.EventBus) {
	bus.Subscribe(events.EventConnectivityChanged, n.handleConnectivity)
}

func (n *TelegramNotifier) handleConnectivity(event *events.Event) error {
	var payload events.ConnectivityEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}

	text := fmt.Sprintf("Front desk terminal back online (source: %s)", payload.Source)
	if payload.Offline {
		text = fmt.Sprintf("Front desk terminal went OFFLINE (source: %s). Check-ins are being queued locally.", payload.Source)
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.sender.Send(msg); err != nil {
		n.logger.Error().Err(err).Msg("send telegram alert")
		return err
	}
	return nil
}
