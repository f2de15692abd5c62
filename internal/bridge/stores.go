package bridge

import "supportbot/internal/models"

// Контракты хранилища, нужные мосту. Все реализуются *db.Store;
// в тестах подменяются на память.

type UserStore interface {
	ResolveOrCreateUser(telegramID int64, username, fullName string) (models.User, error)
	GetUserByID(id int64) (models.User, error)
}

type TicketStore interface {
	CreateTicket(userID int64, subject string) (models.Ticket, error)
	FindOpenTicketForUser(userID int64) (*models.Ticket, error)
	FindLastTicketForUser(userID int64) (*models.Ticket, error)
	FindTicketByCode(code string) (*models.Ticket, error)
	FindTicketByTopic(topicID int64) (*models.Ticket, error)
	GetTicketByID(id int64) (*models.Ticket, error)
	CountOpenTicketsForUser(userID int64) (int, error)
	SetTicketTopic(ticketID, topicID int64) error
}

type MessageStore interface {
	AddMessage(m models.Message) (models.Message, error)
	GetTicketMessages(ticketID int64, limit int) ([]models.Message, error)
}

type LinkStore interface {
	AddMessageLink(l models.MessageLink) (models.MessageLink, error)
	GetLinkBySupportMessage(supportMessageID int64) (*models.MessageLink, error)
}

type SettingsStore interface {
	GetSetting(key, fallback string) string
}
