package bridge

import (
	"time"

	"supportbot/internal/models"
)

// OutcomeStatus — итог обработки входящего события.
type OutcomeStatus string

const (
	// OutcomeOK — контент доставлен, связи записаны.
	OutcomeOK OutcomeStatus = "ok"
	// OutcomeThrottled — событие отклонено антиспамом, без побочных эффектов.
	OutcomeThrottled OutcomeStatus = "throttled"
	// OutcomeBanned — пользователь заблокирован. Осознанный отказ.
	OutcomeBanned OutcomeStatus = "banned"
	// OutcomeInvalidContent — неподдерживаемый или пустой контент.
	OutcomeInvalidContent OutcomeStatus = "invalid_content"
	// OutcomeOpenCapExceeded — превышен лимит открытых тикетов пользователя.
	OutcomeOpenCapExceeded OutcomeStatus = "open_cap_exceeded"
	// OutcomeTicketClosed — тикет закрыт, сообщение не доставлено.
	OutcomeTicketClosed OutcomeStatus = "ticket_closed"
	// OutcomeNoMatchingTicket — событие из чата поддержки не относится ни к
	// одному тикету (обычная болтовня в группе, не ошибка).
	OutcomeNoMatchingTicket OutcomeStatus = "no_matching_ticket"
	// OutcomeDeliveryFailed — доставка не удалась после всех повторов.
	// Связи не записаны, вызывающий решает, что показать пользователю.
	OutcomeDeliveryFailed OutcomeStatus = "delivery_failed"
)

// Outcome — результат обработки события мостом.
type Outcome struct {
	Status     OutcomeStatus
	Ticket     *models.Ticket
	RetryAfter time.Duration        // для OutcomeThrottled
	Links      []models.MessageLink // записанные связи (при OutcomeOK)
	// TransportDegraded: создание топика не удалось, сообщение ушло в общий
	// чат поддержки.
	TransportDegraded bool
	Reason            string
}
