package db

import (
	"log"

	"supportbot/internal/models"
)

// AddMessage добавляет сообщение в историю тикета. Записи только
// добавляются и никогда не изменяются.
func (s *Store) AddMessage(m models.Message) (models.Message, error) {
	err := s.db.QueryRow(`
        INSERT INTO messages (ticket_id, sender_id, content_type, text, file_id, file_name, is_from_operator, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
        RETURNING id, created_at`,
		m.TicketID, m.SenderID, m.ContentType, m.Text, m.FileID, m.FileName, m.IsFromOperator).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		log.Printf("AddMessage: ошибка добавления сообщения в тикет ID %d: %v", m.TicketID, err)
		return m, err
	}
	return m, nil
}

// GetTicketMessages возвращает последние limit сообщений тикета в
// хронологическом порядке (для показа истории).
func (s *Store) GetTicketMessages(ticketID int64, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
        SELECT id, ticket_id, sender_id, content_type, text, file_id, file_name, is_from_operator, created_at
        FROM (
            SELECT id, ticket_id, sender_id, content_type, text, file_id, file_name, is_from_operator, created_at
            FROM messages
            WHERE ticket_id=$1
            ORDER BY created_at DESC
            LIMIT $2
        ) recent
        ORDER BY created_at ASC`, ticketID, limit)
	if err != nil {
		log.Printf("GetTicketMessages: ошибка получения сообщений тикета ID %d: %v", ticketID, err)
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if errScan := rows.Scan(&m.ID, &m.TicketID, &m.SenderID, &m.ContentType,
			&m.Text, &m.FileID, &m.FileName, &m.IsFromOperator, &m.CreatedAt); errScan != nil {
			log.Printf("GetTicketMessages: ошибка сканирования строки сообщения: %v", errScan)
			continue
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
