package db

import (
	"database/sql"
	"log"
)

// GetSetting возвращает значение настройки или fallback, если ключ не
// задан. Читается на каждом проходе маршрутизации, поэтому ошибки БД здесь
// не фатальны — логируются и возвращается значение по умолчанию.
func (s *Store) GetSetting(key, fallback string) string {
	var value string
	err := s.db.QueryRow(`SELECT value FROM bot_settings WHERE key=$1`, key).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("GetSetting: ошибка чтения настройки '%s': %v. Используется значение по умолчанию '%s'.", key, err, fallback)
		}
		return fallback
	}
	return value
}

// SetSetting записывает значение настройки (upsert).
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
        INSERT INTO bot_settings (key, value, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (key) DO UPDATE SET value=$2, updated_at=NOW()`, key, value)
	if err != nil {
		log.Printf("SetSetting: ошибка записи настройки '%s': %v", key, err)
		return err
	}
	log.Printf("Настройка '%s' обновлена: '%s'.", key, value)
	return nil
}
