package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"

	"supportbot/internal/constants"
	"supportbot/internal/models"
)

const ticketColumns = `id, ticket_code, user_id, operator_id, status, topic_id, subject, created_at, updated_at, closed_at`

func scanTicket(row *sql.Row) (models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.TicketCode, &t.UserID, &t.OperatorID, &t.Status,
		&t.TopicID, &t.Subject, &t.CreatedAt, &t.UpdatedAt, &t.ClosedAt)
	return t, err
}

// CreateTicket создаёт новый тикет в статусе open со свежесгенерированным
// кодом. При коллизии кода (unique violation по ticket_code) генерация
// повторяется до constants.TICKET_CODE_ATTEMPTS раз, после чего возвращается
// ErrCodeGenerationExhausted.
func (s *Store) CreateTicket(userID int64, subject string) (models.Ticket, error) {
	t, err := insertTicketWithUniqueCode(func(code string) (models.Ticket, error) {
		row := s.db.QueryRow(`
            INSERT INTO tickets (ticket_code, user_id, status, subject, created_at, updated_at)
            VALUES ($1, $2, $3, $4, NOW(), NOW())
            RETURNING `+ticketColumns,
			code, userID, constants.TICKET_STATUS_OPEN, subject)
		return scanTicket(row)
	})
	if err != nil {
		log.Printf("CreateTicket: ошибка создания тикета для пользователя ID %d: %v", userID, err)
		return t, err
	}
	log.Printf("Создан тикет %s (ID %d) для пользователя ID %d.", t.TicketCode, t.ID, userID)
	return t, nil
}

// insertTicketWithUniqueCode генерирует код тикета и выполняет вставку,
// повторяя генерацию при коллизии кода до constants.TICKET_CODE_ATTEMPTS раз.
// Прочие ошибки вставки прерывают цикл сразу.
func insertTicketWithUniqueCode(insert func(code string) (models.Ticket, error)) (models.Ticket, error) {
	for attempt := 1; attempt <= constants.TICKET_CODE_ATTEMPTS; attempt++ {
		code := models.GenerateTicketCode()
		t, err := insert(code)
		if err == nil {
			return t, nil
		}
		if !isTicketCodeCollision(err) {
			return models.Ticket{}, err
		}
		log.Printf("insertTicketWithUniqueCode: коллизия кода тикета '%s' (попытка %d/%d), повторная генерация.",
			code, attempt, constants.TICKET_CODE_ATTEMPTS)
	}
	return models.Ticket{}, ErrCodeGenerationExhausted
}

// isTicketCodeCollision распознаёт нарушение уникального индекса ticket_code.
func isTicketCodeCollision(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "tickets_ticket_code_key"
}

// FindOpenTicketForUser возвращает последний не закрытый тикет пользователя
// или nil, если такого нет.
func (s *Store) FindOpenTicketForUser(userID int64) (*models.Ticket, error) {
	row := s.db.QueryRow(`
        SELECT `+ticketColumns+` FROM tickets
        WHERE user_id=$1 AND status != $2
        ORDER BY created_at DESC
        LIMIT 1`, userID, constants.TICKET_STATUS_CLOSED)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		log.Printf("FindOpenTicketForUser: ошибка поиска открытого тикета пользователя ID %d: %v", userID, err)
		return nil, err
	}
	return &t, nil
}

// FindLastTicketForUser возвращает последний тикет пользователя независимо
// от статуса или nil, если тикетов нет.
func (s *Store) FindLastTicketForUser(userID int64) (*models.Ticket, error) {
	row := s.db.QueryRow(`
        SELECT `+ticketColumns+` FROM tickets
        WHERE user_id=$1
        ORDER BY created_at DESC
        LIMIT 1`, userID)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		log.Printf("FindLastTicketForUser: ошибка поиска последнего тикета пользователя ID %d: %v", userID, err)
		return nil, err
	}
	return &t, nil
}

// GetTicketByID извлекает тикет по внутреннему ID.
func (s *Store) GetTicketByID(id int64) (*models.Ticket, error) {
	row := s.db.QueryRow(`SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		log.Printf("GetTicketByID: ошибка получения тикета ID %d: %v", id, err)
		return nil, err
	}
	return &t, nil
}

// FindTicketByCode извлекает тикет по короткому коду.
func (s *Store) FindTicketByCode(code string) (*models.Ticket, error) {
	row := s.db.QueryRow(`SELECT `+ticketColumns+` FROM tickets WHERE ticket_code=$1`, code)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		log.Printf("FindTicketByCode: ошибка получения тикета по коду '%s': %v", code, err)
		return nil, err
	}
	return &t, nil
}

// FindTicketByTopic извлекает тикет по ID топика в чате поддержки.
// Запасной путь маршрутизации, когда ответ оператора адресован не
// пересланному сообщению, а, например, заголовку топика.
func (s *Store) FindTicketByTopic(topicID int64) (*models.Ticket, error) {
	row := s.db.QueryRow(`SELECT `+ticketColumns+` FROM tickets WHERE topic_id=$1`, topicID)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		log.Printf("FindTicketByTopic: ошибка получения тикета по topic_id %d: %v", topicID, err)
		return nil, err
	}
	return &t, nil
}

// CountOpenTicketsForUser возвращает количество не закрытых тикетов
// пользователя. Используется для проверки лимита при создании.
func (s *Store) CountOpenTicketsForUser(userID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`
        SELECT COUNT(*) FROM tickets WHERE user_id=$1 AND status != $2`,
		userID, constants.TICKET_STATUS_CLOSED).Scan(&n)
	if err != nil {
		log.Printf("CountOpenTicketsForUser: ошибка подсчёта тикетов пользователя ID %d: %v", userID, err)
		return 0, err
	}
	return n, nil
}

// SetTicketTopic привязывает тикет к топику в чате поддержки.
func (s *Store) SetTicketTopic(ticketID, topicID int64) error {
	_, err := s.db.Exec(`UPDATE tickets SET topic_id=$1, updated_at=NOW() WHERE id=$2`, topicID, ticketID)
	if err != nil {
		log.Printf("SetTicketTopic: ошибка привязки топика %d к тикету ID %d: %v", topicID, ticketID, err)
		return err
	}
	return nil
}

// UpdateTicketStatus записывает новый статус тикета вместе с побочными
// полями (operator_id, closed_at). Валидация перехода делается ДО вызова,
// в lifecycle.Controller — эта функция только сохраняет результат.
func (s *Store) UpdateTicketStatus(ticketID int64, status string, operatorID sql.NullInt64, closedAt sql.NullTime) (models.Ticket, error) {
	row := s.db.QueryRow(`
        UPDATE tickets
        SET status=$1,
            operator_id=COALESCE($2, operator_id),
            closed_at=$3,
            updated_at=NOW()
        WHERE id=$4
        RETURNING `+ticketColumns,
		status, operatorID, closedAt, ticketID)
	t, err := scanTicket(row)
	if err != nil {
		log.Printf("UpdateTicketStatus: ошибка обновления статуса тикета ID %d на '%s': %v", ticketID, status, err)
		return t, err
	}
	log.Printf("Тикет %s (ID %d): статус обновлён на '%s'.", t.TicketCode, t.ID, status)
	return t, nil
}

// ListTickets возвращает тикеты для операторского API, отфильтрованные по
// статусу (пустая строка — все), от новых к старым.
func (s *Store) ListTickets(status string, limit int) ([]models.Ticket, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status=$1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		log.Printf("ListTickets: ошибка получения списка тикетов (status='%s'): %v", status, err)
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if errScan := rows.Scan(&t.ID, &t.TicketCode, &t.UserID, &t.OperatorID, &t.Status,
			&t.TopicID, &t.Subject, &t.CreatedAt, &t.UpdatedAt, &t.ClosedAt); errScan != nil {
			log.Printf("ListTickets: ошибка сканирования строки тикета: %v", errScan)
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// GetUserTickets возвращает тикеты пользователя от новых к старым
// (для списка «Мои обращения»).
func (s *Store) GetUserTickets(userID int64, limit int) ([]models.Ticket, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`SELECT `+ticketColumns+` FROM tickets
        WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		log.Printf("GetUserTickets: ошибка получения тикетов пользователя ID %d: %v", userID, err)
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if errScan := rows.Scan(&t.ID, &t.TicketCode, &t.UserID, &t.OperatorID, &t.Status,
			&t.TopicID, &t.Subject, &t.CreatedAt, &t.UpdatedAt, &t.ClosedAt); errScan != nil {
			log.Printf("GetUserTickets: ошибка сканирования строки тикета: %v", errScan)
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// GetTicketsForExcel возвращает строки отчёта по тикетам вместе с данными
// пользователя. Порядок колонок должен соответствовать сканированию в
// api.TicketsReportHandler.
func (s *Store) GetTicketsForExcel() (*sql.Rows, error) {
	rows, err := s.db.Query(`
        SELECT t.ticket_code, u.full_name, u.username, t.subject, t.status,
               t.created_at, t.closed_at
        FROM tickets t
        JOIN users u ON t.user_id = u.id
        ORDER BY t.created_at DESC`)
	if err != nil {
		log.Printf("GetTicketsForExcel: ошибка получения данных для отчёта: %v", err)
		return nil, err
	}
	return rows, nil
}
