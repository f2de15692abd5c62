package models

import (
	"database/sql"
	"time"
)

// MessageLink — связь между сообщением пользователя и сообщением в чате
// поддержки. По SupportMessageID (уникален в пределах чата поддержки)
// ответ оператора находит исходный тикет и пользователя. Одно входящее
// сообщение может породить несколько связей, если транспорту пришлось
// разбивать отправку (медиа без подписи).
type MessageLink struct {
	ID               int64
	TicketID         int64
	UserID           int64
	UserMessageID    int64 // ID сообщения на стороне пользователя
	SupportMessageID int64 // ID сообщения в чате поддержки
	TopicID          sql.NullInt64
	CreatedAt        time.Time
}
