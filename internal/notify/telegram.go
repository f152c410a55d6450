// Package notify tells managers about reservations that need attention.
package notify

import (
	"context"
	"errors"
	"fmt"

	"roomreserve/internal/domain"
	"roomreserve/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ManagerNotifier sends Telegram messages to manager chats when a reservation
// is created (it waits for approval) or approved.
type ManagerNotifier struct {
	bot      domain.TelegramSender
	managers []int64
}

func NewManagerNotifier(bot domain.TelegramSender, managerChatIDs []int64) *ManagerNotifier {
	return &ManagerNotifier{bot: bot, managers: managerChatIDs}
}

func (n *ManagerNotifier) Name() string { return "telegram" }

func (n *ManagerNotifier) Deliver(_ context.Context, event *events.Event) error {
	text, ok, err := formatMessage(event)
	if err != nil || !ok {
		return err
	}

	var errs []error
	for _, chatID := range n.managers {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := n.bot.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("send to chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// formatMessage returns false for event types managers do not follow.
func formatMessage(event *events.Event) (string, bool, error) {
	var header string
	switch event.Type {
	case events.EventReservationCreated:
		header = "🆕 *New reservation awaits approval*"
	case events.EventReservationApproved:
		header = "✅ *Reservation approved*"
	default:
		return "", false, nil
	}

	p, err := event.Decode()
	if err != nil {
		return "", false, fmt.Errorf("decode %s payload: %w", event.Type, err)
	}

	return fmt.Sprintf("%s\n\n🆔 Reservation: %d\n🚪 Room: %d\n👤 User: %d\n📅 %s → %s",
		header, p.ReservationID, p.RoomID, p.UserID, p.StartDate, p.EndDate), true, nil
}
