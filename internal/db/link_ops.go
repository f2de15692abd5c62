package db

import (
	"database/sql"
	"log"

	"supportbot/internal/models"
)

// AddMessageLink сохраняет связь между сообщением пользователя и
// сообщением в чате поддержки. support_message_id уникален в пределах
// чата поддержки — это ключ поиска при ответах операторов.
func (s *Store) AddMessageLink(l models.MessageLink) (models.MessageLink, error) {
	err := s.db.QueryRow(`
        INSERT INTO message_links (ticket_id, user_id, user_message_id, support_message_id, topic_id, created_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
        RETURNING id, created_at`,
		l.TicketID, l.UserID, l.UserMessageID, l.SupportMessageID, l.TopicID).
		Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		log.Printf("AddMessageLink: ошибка сохранения связи (тикет ID %d, support_message_id %d): %v",
			l.TicketID, l.SupportMessageID, err)
		return l, err
	}
	return l, nil
}

// GetLinkBySupportMessage находит связь по ID сообщения в чате поддержки.
// Горячий путь: вызывается на каждый ответ оператора.
func (s *Store) GetLinkBySupportMessage(supportMessageID int64) (*models.MessageLink, error) {
	var l models.MessageLink
	err := s.db.QueryRow(`
        SELECT id, ticket_id, user_id, user_message_id, support_message_id, topic_id, created_at
        FROM message_links
        WHERE support_message_id=$1`, supportMessageID).Scan(
		&l.ID, &l.TicketID, &l.UserID, &l.UserMessageID, &l.SupportMessageID, &l.TopicID, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		log.Printf("GetLinkBySupportMessage: ошибка поиска связи по support_message_id %d: %v", supportMessageID, err)
		return nil, err
	}
	return &l, nil
}
