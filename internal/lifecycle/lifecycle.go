// Пакет lifecycle — единственное место, где проверяются и применяются
// переходы статусов тикета. Обработчики и мост не меняют статус напрямую.
package lifecycle

import (
	"fmt"

	"supportbot/internal/constants"
)

// Таблица допустимых переходов. Всё, чего здесь нет, — InvalidTransition.
//
//	open         -> in_progress (оператор взял тикет или ответил), closed
//	in_progress  -> waiting_user, closed
//	waiting_user -> in_progress, closed
//	closed       -> in_progress (переоткрытие: новое сообщение пользователя
//	                или явное действие)
var transitions = map[string][]string{
	constants.TICKET_STATUS_OPEN:         {constants.TICKET_STATUS_IN_PROGRESS, constants.TICKET_STATUS_CLOSED},
	constants.TICKET_STATUS_IN_PROGRESS:  {constants.TICKET_STATUS_WAITING_USER, constants.TICKET_STATUS_CLOSED},
	constants.TICKET_STATUS_WAITING_USER: {constants.TICKET_STATUS_IN_PROGRESS, constants.TICKET_STATUS_CLOSED},
	constants.TICKET_STATUS_CLOSED:       {constants.TICKET_STATUS_IN_PROGRESS},
}

// InvalidTransitionError сообщает о недопустимом переходе статуса.
// Это осознанный отказ (policy error), а не внутренний сбой.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("недопустимый переход статуса тикета: %s -> %s", e.From, e.To)
}

// CanTransition проверяет переход по таблице.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
