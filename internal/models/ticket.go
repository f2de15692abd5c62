package models

import (
	"database/sql"
	"fmt"
	"math/rand"
	"time"
)

// Ticket represents a support conversation between one user and staff.
type Ticket struct {
	ID         int64
	TicketCode string
	UserID     int64
	OperatorID sql.NullInt64
	Status     string
	TopicID    sql.NullInt64 // ID топика в группе поддержки, если routing_mode=topics
	Subject    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ClosedAt   sql.NullTime
}

// Алфавит и формат кода тикета. Код короткий и предназначен для обмена
// между пользователем и оператором, поэтому только заглавные буквы и цифры.
const (
	ticketCodePrefix   = "SHFT-"
	ticketCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	ticketCodeLength   = 4
)

// GenerateTicketCode генерирует код тикета вида SHFT-XXXX.
// Уникальность кода здесь НЕ гарантируется — проверка на коллизию
// выполняется при вставке в БД (db.CreateTicket) с ограниченным числом
// повторных попыток.
// GenerateTicketCode generates a ticket code like SHFT-XXXX.
// Uniqueness is NOT guaranteed here — the collision check happens on
// insert (db.CreateTicket) with a bounded number of retries.
func GenerateTicketCode() string {
	b := make([]byte, ticketCodeLength)
	for i := range b {
		b[i] = ticketCodeAlphabet[rand.Intn(len(ticketCodeAlphabet))]
	}
	return fmt.Sprintf("%s%s", ticketCodePrefix, b)
}
