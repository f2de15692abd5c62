package bridge

import "supportbot/internal/models"

// UserEvent — входящее сообщение из личного чата пользователя с ботом.
type UserEvent struct {
	EventID    string // корреляционный ID для логов, генерируется если пуст
	TelegramID int64
	Username   string
	FullName   string
	MessageID  int64  // ID сообщения в личном чате
	Subject    string // тема для нового тикета (из черновика сессии), может быть пустой
	TicketCode string // тикет, выбранный пользователем явно; пустой — подбор автоматом
	// ForceNew: пользователь явно начал новый тикет — активный тикет и
	// политика переоткрытия не рассматриваются.
	ForceNew bool
	Content  models.Content
}

// StaffEvent — входящее сообщение из чата поддержки.
type StaffEvent struct {
	EventID            string
	OperatorTelegramID int64
	Username           string
	FullName           string
	MessageID          int64 // ID сообщения в чате поддержки
	ReplyToMessageID   int64 // ID сообщения, на которое ответил оператор, 0 — без ответа
	TopicID            int64 // топик, из которого пришло сообщение, 0 — общий чат
	Content            models.Content
}
