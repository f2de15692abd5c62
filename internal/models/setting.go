package models

import "time"

// Setting — пара ключ/значение из таблицы bot_settings.
type Setting struct {
	ID        int64
	Key       string
	Value     string
	UpdatedAt time.Time
}
