// internal/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"supportbot/internal/constants"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	TelegramToken string
	BotUsername   string
	DatabaseURL   string
	AppEnv        string
	Port          string

	// Чат поддержки (группа с включёнными топиками) и администраторы.
	SupportChatID int64
	AdminIDs      []int64

	// Токен для операторского HTTP API.
	APIToken string

	// Антиспам: максимум сообщений от одного пользователя в окне.
	RateLimitMessages int
	RateLimitWindow   time.Duration

	MaxSubjectLength  int
	MaxOpenTickets    int // лимит одновременно открытых тикетов на пользователя
	SendRetries       int // повторы отправки при троттлинге Telegram
	SendTimeout       time.Duration
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_APITOKEN"),
		BotUsername:   os.Getenv("BOT_USERNAME"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		AppEnv:        os.Getenv("ENV"),
		Port:          os.Getenv("PORT"),
		APIToken:      os.Getenv("API_TOKEN"),
	}

	var err error
	cfg.SupportChatID, err = strconv.ParseInt(os.Getenv("SUPPORT_CHAT_ID"), 10, 64)
	if err != nil {
		log.Printf("Предупреждение: не удалось прочитать SUPPORT_CHAT_ID: %v. Установлено в 0.", err)
		cfg.SupportChatID = 0
	}

	for _, part := range strings.Split(os.Getenv("ADMIN_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, errParse := strconv.ParseInt(part, 10, 64)
		if errParse != nil {
			log.Printf("Предупреждение: некорректный ID администратора '%s': %v. Пропущен.", part, errParse)
			continue
		}
		cfg.AdminIDs = append(cfg.AdminIDs, id)
	}

	cfg.RateLimitMessages = intEnv("RATE_LIMIT_MESSAGES", constants.DEFAULT_RATE_LIMIT_MESSAGES)
	cfg.RateLimitWindow = time.Duration(intEnv("RATE_LIMIT_WINDOW_SECONDS", int(constants.DEFAULT_RATE_LIMIT_WINDOW/time.Second))) * time.Second
	cfg.MaxSubjectLength = intEnv("MAX_SUBJECT_LENGTH", constants.DEFAULT_MAX_SUBJECT_LENGTH)
	cfg.MaxOpenTickets = intEnv("MAX_OPEN_TICKETS", constants.DEFAULT_MAX_OPEN_TICKETS)
	cfg.SendRetries = nonNegIntEnv("SEND_RETRIES", constants.DEFAULT_SEND_RETRIES)
	cfg.SendTimeout = time.Duration(intEnv("SEND_TIMEOUT_SECONDS", int(constants.DEFAULT_SEND_TIMEOUT/time.Second))) * time.Second

	if cfg.TelegramToken == "" {
		log.Println("Критическая ошибка: TELEGRAM_APITOKEN не установлен.")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Критическая ошибка: DATABASE_URL не установлен.")
	}
	if cfg.SupportChatID == 0 {
		log.Println("Предупреждение: SUPPORT_CHAT_ID не установлен. Пересылка в чат поддержки работать не будет.")
	}
	if len(cfg.AdminIDs) == 0 {
		log.Println("Предупреждение: ADMIN_IDS не установлен.")
	}
	if cfg.BotUsername == "" {
		log.Println("Предупреждение: BOT_USERNAME не установлен. QR-ссылки на тикеты будут недоступны.")
	}
	if cfg.APIToken == "" {
		log.Println("Предупреждение: API_TOKEN не установлен. HTTP API будет отклонять все запросы.")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	log.Println("Конфигурация загружена.")
	return cfg, nil
}

// IsAdmin проверяет, входит ли пользователь в список администраторов.
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func intEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("Предупреждение: некорректное значение %s ('%s'): %v. Используется значение по умолчанию %d.", name, raw, err, fallback)
		return fallback
	}
	return v
}

// nonNegIntEnv — как intEnv, но ноль допустим: SEND_RETRIES=0 осознанно
// отключает повторы отправки.
func nonNegIntEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		log.Printf("Предупреждение: некорректное значение %s ('%s'): %v. Используется значение по умолчанию %d.", name, raw, err, fallback)
		return fallback
	}
	return v
}
