package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"roomreserve/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTelegramSender struct {
	mock.Mock
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func event(t *testing.T, eventType string) *events.Event {
	t.Helper()
	raw, err := json.Marshal(events.ReservationEventPayload{
		ReservationID: 42,
		UserID:        7,
		RoomID:        3,
		StartDate:     "2026-01-10",
		EndDate:       "2026-01-15",
		Status:        "PENDING",
	})
	require.NoError(t, err)
	return &events.Event{Type: eventType, Payload: raw}
}

func TestManagerNotifier_Created(t *testing.T) {
	sender := new(mockTelegramSender)
	n := NewManagerNotifier(sender, []int64{100, 200})

	for _, chatID := range []int64{100, 200} {
		chatID := chatID
		sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.ChatID == chatID &&
				msg.ParseMode == tgbotapi.ModeMarkdown &&
				strings.Contains(msg.Text, "awaits approval") &&
				strings.Contains(msg.Text, "Reservation: 42") &&
				strings.Contains(msg.Text, "2026-01-10 → 2026-01-15")
		})).Return(tgbotapi.Message{}, nil).Once()
	}

	require.NoError(t, n.Deliver(context.Background(), event(t, events.EventReservationCreated)))
	sender.AssertExpectations(t)
}

func TestManagerNotifier_Approved(t *testing.T) {
	sender := new(mockTelegramSender)
	n := NewManagerNotifier(sender, []int64{100})

	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && strings.Contains(msg.Text, "Reservation approved")
	})).Return(tgbotapi.Message{}, nil).Once()

	require.NoError(t, n.Deliver(context.Background(), event(t, events.EventReservationApproved)))
	sender.AssertExpectations(t)
}

func TestManagerNotifier_IgnoresOtherEvents(t *testing.T) {
	sender := new(mockTelegramSender)
	n := NewManagerNotifier(sender, []int64{100})

	assert.NoError(t, n.Deliver(context.Background(), event(t, events.EventReservationCancelled)))
	assert.NoError(t, n.Deliver(context.Background(), event(t, events.EventReservationUpdated)))
	sender.AssertNotCalled(t, "Send", mock.Anything)
}

func TestManagerNotifier_Errors(t *testing.T) {
	sender := new(mockTelegramSender)
	n := NewManagerNotifier(sender, []int64{100, 200})

	sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("Too Many Requests")).Once()
	sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, nil).Once()

	err := n.Deliver(context.Background(), event(t, events.EventReservationCreated))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send to chat 100")

	bad := &events.Event{Type: events.EventReservationCreated, Payload: []byte("{")}
	assert.Error(t, n.Deliver(context.Background(), bad))
}
