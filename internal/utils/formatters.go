package utils

import (
	"fmt"

	"github.com/google/uuid"

	"supportbot/internal/constants"
	"supportbot/internal/models"
)

// StatusDisplay возвращает человекочитаемое название статуса с эмодзи.
func StatusDisplay(status string) string {
	switch status {
	case constants.TICKET_STATUS_OPEN:
		return "🔵 Открыт"
	case constants.TICKET_STATUS_IN_PROGRESS:
		return "🟡 В обработке"
	case constants.TICKET_STATUS_WAITING_USER:
		return "🟠 Ожидает вашего ответа"
	case constants.TICKET_STATUS_CLOSED:
		return "⚫ Закрыт"
	}
	return "Неизвестно"
}

// statusEmoji — маркер статуса для названия топика.
func statusEmoji(status string) string {
	switch status {
	case constants.TICKET_STATUS_OPEN:
		return "🔵"
	case constants.TICKET_STATUS_IN_PROGRESS:
		return "🟡"
	case constants.TICKET_STATUS_WAITING_USER:
		return "🟠"
	case constants.TICKET_STATUS_CLOSED:
		return "🔴"
	}
	return "❔"
}

// GetUserDisplayName формирует отображаемое имя пользователя:
// @username, если никнейм задан, иначе полное имя.
func GetUserDisplayName(user models.User) string {
	if user.Username.Valid && user.Username.String != "" {
		return "@" + user.Username.String
	}
	if user.FullName != "" {
		return user.FullName
	}
	return fmt.Sprintf("id%d", user.TelegramID)
}

// FormatTopicName формирует название топика тикета в чате поддержки:
// "<эмодзи статуса> <код> | <пользователь>". Используется при создании
// топика и при его переименовании после смены статуса.
func FormatTopicName(ticket models.Ticket, user models.User) string {
	return fmt.Sprintf("%s %s | %s", statusEmoji(ticket.Status), ticket.TicketCode, GetUserDisplayName(user))
}

// TruncateText обрезает текст до max символов (рун), добавляя многоточие.
func TruncateText(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// GenerateEventID генерирует корреляционный ID события моста для логов.
func GenerateEventID() string {
	return uuid.New().String()
}

// GenerateTicketLink генерирует deep-link на тикет вида
// https://t.me/<bot>?start=ticket_<код>.
func GenerateTicketLink(botUsername, ticketCode string) (string, error) {
	if botUsername == "" {
		return "", fmt.Errorf("имя пользователя бота не настроено")
	}
	if ticketCode == "" {
		return "", fmt.Errorf("пустой код тикета")
	}
	return fmt.Sprintf("https://t.me/%s?start=ticket_%s", botUsername, ticketCode), nil
}
