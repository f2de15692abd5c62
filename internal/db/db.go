// Файл: internal/db/db.go
package db

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Store инкапсулирует подключение к базе данных. Экземпляр создаётся один
// раз при старте процесса и передаётся компонентам явно — глобального
// хендла нет.
// Store encapsulates the database connection. A single instance is created
// at process start and passed to components explicitly — there is no
// global handle.
type Store struct {
	db *sql.DB
}

// NewStore открывает соединение с базой данных, проверяет его и выполняет
// миграции (создание таблиц и индексов, если их нет).
func NewStore(databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL не установлена")
	}

	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	conn.SetMaxOpenConns(50)
	conn.SetMaxIdleConns(20)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ошибка проверки соединения с базой данных: %w", err)
	}

	log.Println("Успешное подключение к базе данных.")

	s := &Store{db: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close закрывает соединение с базой данных.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	log.Println("Закрытие соединения с базой данных.")
	return s.db.Close()
}

// migrate создаёт таблицы и индексы, если их нет.
func (s *Store) migrate() error {
	createTablesSQL := `
        CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            telegram_id BIGINT UNIQUE NOT NULL,
            username VARCHAR(255),
            full_name VARCHAR(255) NOT NULL DEFAULT '',
            is_banned BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS tickets (
            id SERIAL PRIMARY KEY,
            ticket_code VARCHAR(20) UNIQUE NOT NULL,
            user_id INTEGER NOT NULL REFERENCES users(id),
            operator_id INTEGER REFERENCES users(id),
            status TEXT NOT NULL,
            topic_id BIGINT UNIQUE,
            subject VARCHAR(255) NOT NULL DEFAULT '',
            created_at TIMESTAMP NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
            closed_at TIMESTAMP
        );
        CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            ticket_id INTEGER NOT NULL REFERENCES tickets(id),
            sender_id INTEGER NOT NULL REFERENCES users(id),
            content_type TEXT NOT NULL,
            text TEXT,
            file_id TEXT,
            file_name TEXT,
            is_from_operator BOOLEAN NOT NULL,
            created_at TIMESTAMP NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS message_links (
            id SERIAL PRIMARY KEY,
            ticket_id INTEGER NOT NULL REFERENCES tickets(id),
            user_id INTEGER NOT NULL REFERENCES users(id),
            user_message_id BIGINT NOT NULL,
            support_message_id BIGINT UNIQUE NOT NULL,
            topic_id BIGINT,
            created_at TIMESTAMP NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS bot_settings (
            id SERIAL PRIMARY KEY,
            key VARCHAR(50) UNIQUE NOT NULL,
            value TEXT NOT NULL,
            updated_at TIMESTAMP NOT NULL DEFAULT NOW()
        );
        CREATE INDEX IF NOT EXISTS idx_tickets_user_status ON tickets(user_id, status);
        CREATE INDEX IF NOT EXISTS idx_tickets_topic ON tickets(topic_id);
        CREATE INDEX IF NOT EXISTS idx_message_links_support ON message_links(support_message_id);
        CREATE INDEX IF NOT EXISTS idx_messages_ticket_created ON messages(ticket_id, created_at);
    `

	if _, err := s.db.Exec(createTablesSQL); err != nil {
		return fmt.Errorf("ошибка создания таблиц: %w", err)
	}
	log.Println("Таблицы и индексы проверены/созданы.")
	return nil
}
