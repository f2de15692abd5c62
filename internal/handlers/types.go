package handlers

import (
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"supportbot/internal/bridge"
	"supportbot/internal/config"
	"supportbot/internal/db"
	"supportbot/internal/session"
	"supportbot/internal/telegram_api"
)

// HandlerDependencies содержит все зависимости, необходимые для обработчиков.
// HandlerDependencies contains all dependencies required for handlers.
type HandlerDependencies struct {
	Config         *config.Config
	BotClient      *telegram_api.BotClient
	Store          *db.Store
	Router         *bridge.Router
	SessionManager *session.SessionManager
}

// BotHandler инкапсулирует логику обработки сообщений и коллбэков.
// BotHandler encapsulates the logic for handling messages and callbacks.
type BotHandler struct {
	Deps HandlerDependencies
}

// NewBotHandler создает новый экземпляр BotHandler.
// NewBotHandler creates a new instance of BotHandler.
func NewBotHandler(deps HandlerDependencies) *BotHandler {
	if deps.Config == nil || deps.BotClient == nil || deps.Store == nil ||
		deps.Router == nil || deps.SessionManager == nil {
		// Это критическая ошибка конфигурации, приложение не сможет работать корректно.
		// This is a critical configuration error; the application will not work correctly.
		panic("Не все зависимости для BotHandler были предоставлены.")
	}
	return &BotHandler{Deps: deps}
}

// sendText отправляет простой текст в чат. Ошибка логируется и глотается:
// сбой служебного ответа не должен ронять обработку обновления.
func (bh *BotHandler) sendText(chatID int64, text string) {
	if _, err := bh.Deps.BotClient.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("sendText: ошибка отправки в чат %d: %v", chatID, err)
	}
}

// sendWithKeyboard отправляет текст с инлайн-клавиатурой.
func (bh *BotHandler) sendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := bh.Deps.BotClient.Send(msg); err != nil {
		log.Printf("sendWithKeyboard: ошибка отправки в чат %d: %v", chatID, err)
	}
}

// replyInThread отвечает в чате поддержки в том же топике, что и msg.
func (bh *BotHandler) replyInThread(msg *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	if msg.MessageThreadID != 0 {
		reply.MessageThreadID = msg.MessageThreadID
	}
	if _, err := bh.Deps.BotClient.Send(reply); err != nil {
		log.Printf("replyInThread: ошибка отправки в чат %d: %v", msg.Chat.ID, err)
	}
}
