package models

import (
	"database/sql"
	"time"
)

// User represents a user in the system.
// Пользователь создаётся при первом обращении и никогда физически не
// удаляется — блокировка делается флагом IsBanned.
type User struct {
	ID         int64
	TelegramID int64
	Username   sql.NullString
	FullName   string
	IsBanned   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
