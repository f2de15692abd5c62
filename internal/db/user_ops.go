package db

import (
	"database/sql"
	"fmt"
	"log"

	"supportbot/internal/models"
)

// ResolveOrCreateUser регистрирует нового пользователя или обновляет
// отображаемые данные существующего. Идемпотентна: повторный вызов с теми
// же данными не создаёт новой строки. Флаг is_banned здесь НИКОГДА не
// меняется — только через SetUserBanned.
// ResolveOrCreateUser registers a new user or refreshes the display data of
// an existing one. Idempotent: a repeated call with the same data does not
// create a new row. The is_banned flag is NEVER touched here — only via
// SetUserBanned.
func (s *Store) ResolveOrCreateUser(telegramID int64, username, fullName string) (models.User, error) {
	var user models.User

	// Upsert по telegram_id: вставка или обновление имени/никнейма.
	// Запись делается сразу, без батчинга: проверка бана следующего же
	// сообщения должна читать актуальное состояние.
	err := s.db.QueryRow(`
        INSERT INTO users (telegram_id, username, full_name, created_at, updated_at)
        VALUES ($1, NULLIF($2, ''), $3, NOW(), NOW())
        ON CONFLICT (telegram_id) DO UPDATE
            SET username = NULLIF($2, ''), full_name = $3, updated_at = NOW()
        RETURNING id, telegram_id, username, full_name, is_banned, created_at, updated_at`,
		telegramID, username, fullName).Scan(
		&user.ID, &user.TelegramID, &user.Username, &user.FullName,
		&user.IsBanned, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		log.Printf("ResolveOrCreateUser: ошибка upsert пользователя telegramID %d: %v", telegramID, err)
		return user, err
	}
	return user, nil
}

// GetUserByTelegramID извлекает пользователя по его telegram_id.
func (s *Store) GetUserByTelegramID(telegramID int64) (models.User, error) {
	var u models.User
	err := s.db.QueryRow(`
        SELECT id, telegram_id, username, full_name, is_banned, created_at, updated_at
        FROM users WHERE telegram_id=$1`, telegramID).Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.FullName, &u.IsBanned, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return u, err
		}
		log.Printf("GetUserByTelegramID: ошибка получения пользователя telegramID %d: %v", telegramID, err)
		return u, err
	}
	return u, nil
}

// GetUserByID извлекает пользователя по внутреннему ID.
func (s *Store) GetUserByID(id int64) (models.User, error) {
	var u models.User
	err := s.db.QueryRow(`
        SELECT id, telegram_id, username, full_name, is_banned, created_at, updated_at
        FROM users WHERE id=$1`, id).Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.FullName, &u.IsBanned, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("GetUserByID: ошибка получения пользователя ID %d: %v", id, err)
		}
		return u, err
	}
	return u, nil
}

// SetUserBanned устанавливает или снимает флаг блокировки пользователя.
func (s *Store) SetUserBanned(userID int64, banned bool) (models.User, error) {
	var u models.User
	err := s.db.QueryRow(`
        UPDATE users SET is_banned=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING id, telegram_id, username, full_name, is_banned, created_at, updated_at`,
		banned, userID).Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.FullName, &u.IsBanned, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return u, fmt.Errorf("пользователь ID %d не найден для блокировки", userID)
		}
		log.Printf("SetUserBanned: ошибка обновления флага блокировки для ID %d: %v", userID, err)
		return u, err
	}
	if banned {
		log.Printf("Пользователь ID %d (telegramID %d) заблокирован.", u.ID, u.TelegramID)
	} else {
		log.Printf("Пользователь ID %d (telegramID %d) разблокирован.", u.ID, u.TelegramID)
	}
	return u, nil
}
