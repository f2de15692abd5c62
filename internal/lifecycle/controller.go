package lifecycle

import (
	"context"
	"database/sql"
	"log"
	"time"

	"supportbot/internal/constants"
	"supportbot/internal/models"
	"supportbot/internal/utils"
)

// TicketStore — минимальный контракт хранилища для контроллера.
// Реализуется db.Store.
type TicketStore interface {
	UpdateTicketStatus(ticketID int64, status string, operatorID sql.NullInt64, closedAt sql.NullTime) (models.Ticket, error)
	GetUserByID(id int64) (models.User, error)
}

// SideEffects — побочные эффекты перехода: уведомление пользователя и
// переименование топика. Оба вызова best-effort: ошибка логируется и не
// влияет на результат перехода. Реализуется telegram_api.Transport.
type SideEffects interface {
	NotifyUser(ctx context.Context, userTelegramID int64, text string) error
	RelabelTopic(ctx context.Context, topicID int64, label string) error
}

// Controller применяет переходы статусов тикета: валидация по таблице,
// временные метки, назначение оператора, побочные эффекты.
//
// Вызывающий обязан держать блокировку тикета (bridge.Router сериализует
// переходы по ID тикета) — сам контроллер блокировок не берёт.
type Controller struct {
	Tickets TicketStore
	Effects SideEffects // может быть nil (например, в тестах)
}

// Transition переводит тикет в новый статус.
// При недопустимом переходе возвращает *InvalidTransitionError, тикет не
// меняется. Побочные эффекты (уведомление пользователя, переименование
// топика) выполняются после успешной записи и не могут провалить переход.
func (c *Controller) Transition(ctx context.Context, ticket models.Ticket, newStatus string, operator *models.User) (models.Ticket, error) {
	if !CanTransition(ticket.Status, newStatus) {
		return ticket, &InvalidTransitionError{From: ticket.Status, To: newStatus}
	}

	var operatorID sql.NullInt64
	if operator != nil {
		operatorID = sql.NullInt64{Int64: operator.ID, Valid: true}
	}

	// closed_at ставится при закрытии и сбрасывается при переоткрытии.
	var closedAt sql.NullTime
	if newStatus == constants.TICKET_STATUS_CLOSED {
		closedAt = sql.NullTime{Time: nowUTC(), Valid: true}
	}

	updated, err := c.Tickets.UpdateTicketStatus(ticket.ID, newStatus, operatorID, closedAt)
	if err != nil {
		return ticket, err
	}

	c.runSideEffects(ctx, updated, ticket.Status)
	return updated, nil
}

// runSideEffects уведомляет пользователя и переименовывает топик.
// Любая ошибка здесь логируется и отбрасывается.
func (c *Controller) runSideEffects(ctx context.Context, ticket models.Ticket, oldStatus string) {
	if c.Effects == nil {
		return
	}

	if text := notificationText(ticket, oldStatus); text != "" {
		user, err := c.Tickets.GetUserByID(ticket.UserID)
		if err != nil {
			log.Printf("lifecycle: не удалось получить пользователя ID %d для уведомления по тикету %s: %v",
				ticket.UserID, ticket.TicketCode, err)
		} else if err := c.Effects.NotifyUser(ctx, user.TelegramID, text); err != nil {
			log.Printf("lifecycle: не удалось уведомить пользователя %d по тикету %s: %v",
				user.TelegramID, ticket.TicketCode, err)
		}
	}

	if ticket.TopicID.Valid {
		user, err := c.Tickets.GetUserByID(ticket.UserID)
		if err != nil {
			log.Printf("lifecycle: не удалось получить пользователя ID %d для переименования топика тикета %s: %v",
				ticket.UserID, ticket.TicketCode, err)
			return
		}
		label := utils.FormatTopicName(ticket, user)
		if err := c.Effects.RelabelTopic(ctx, ticket.TopicID.Int64, label); err != nil {
			log.Printf("lifecycle: не удалось переименовать топик %d тикета %s: %v",
				ticket.TopicID.Int64, ticket.TicketCode, err)
		}
	}
}

func nowUTC() time.Time { return time.Now().UTC() }

// notificationText возвращает текст уведомления пользователю для данного
// перехода или пустую строку, если уведомление не требуется.
func notificationText(ticket models.Ticket, oldStatus string) string {
	switch {
	case ticket.Status == constants.TICKET_STATUS_CLOSED:
		return "✅ Обращение " + ticket.TicketCode + " закрыто.\n\nЕсли проблема появится снова — создайте новый тикет."
	case oldStatus == constants.TICKET_STATUS_CLOSED && ticket.Status == constants.TICKET_STATUS_IN_PROGRESS:
		return "🔄 Обращение " + ticket.TicketCode + " переоткрыто."
	case ticket.Status == constants.TICKET_STATUS_WAITING_USER:
		return "🟠 По обращению " + ticket.TicketCode + " ожидается ваш ответ."
	}
	return ""
}
