package telegram_api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// BotClient — обертка над Telegram Bot API. Экземпляр передается
// зависимостям явно, глобального состояния у пакета нет.
// BotClient is a wrapper around the Telegram Bot API. The instance is
// passed to dependencies explicitly, the package holds no global state.
type BotClient struct {
	api   *tgbotapi.BotAPI
	Debug bool
}

// NewBotClient инициализирует Telegram бота.
// token - API токен вашего бота.
// debug - флаг для включения режима отладки.
// timeout - таймаут HTTP-вызовов к API Telegram.
func NewBotClient(token string, debug bool, timeout time.Duration) (*BotClient, error) {
	if token == "" {
		return nil, fmt.Errorf("токен Telegram API не предоставлен")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Telegram Bot API: %w", err)
	}

	api.Debug = debug

	log.Printf("Авторизован как аккаунт %s", api.Self.UserName)

	// Отключаем вебхук, если он активен (важно для getUpdates)
	// Disable webhook if active (important for getUpdates)
	deleteWebhookConfig := tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: true,
	}
	if _, err := api.Request(deleteWebhookConfig); err != nil {
		// Ошибка может возникнуть, если вебхука и не было.
		// Логируем, но не прерываем инициализацию.
		log.Printf("Предупреждение при отключении вебхука: %v. Это нормально, если вебхук не был установлен.", err)
	}

	return &BotClient{api: api, Debug: debug}, nil
}

// Username возвращает имя пользователя бота (для генерации ссылок).
func (bc *BotClient) Username() string {
	return bc.api.Self.UserName
}

// GetUpdatesChan возвращает канал обновлений от Telegram.
// GetUpdatesChan returns the update channel from Telegram.
func (bc *BotClient) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	if bc.Debug {
		log.Printf("Запрос канала обновлений с конфигурацией: %+v", config)
	}
	return bc.api.GetUpdatesChan(config)
}

// Send отправляет сообщение через BotClient.
// Send sends a message via BotClient.
func (bc *BotClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if bc.Debug {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			log.Printf("Отправка сообщения: ChatID=%d, Text='%.50s...'", msg.ChatID, msg.Text)
		} else {
			log.Printf("Отправка типа %T", c)
		}
	}
	return bc.api.Send(c)
}

// Request выполняет запрос через BotClient.
// Request performs a request via BotClient.
func (bc *BotClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if bc.Debug {
		log.Printf("Выполнение запроса типа %T", c)
	}
	return bc.api.Request(c)
}

// MakeRequest выполняет произвольный запрос к API Telegram.
// Этот метод полезен для вызовов API, не обернутых в стандартные методы tgbotapi
// (например, работа с топиками форума).
// MakeRequest performs an arbitrary request to the Telegram API.
func (bc *BotClient) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	if bc.Debug {
		log.Printf("Выполнение MakeRequest: endpoint=%s, params=%v", endpoint, params)
	}
	return bc.api.MakeRequest(endpoint, params)
}
